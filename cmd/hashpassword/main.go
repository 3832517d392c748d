// Command hashpassword prints the bcrypt hash of a password, for seeding accounts.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

func main() {
	password := flag.String("password", "", "password to hash (or pass it as the first argument)")
	skipCheck := flag.Bool("skip-strength-check", false, "hash passwords that fail the signup rules")
	flag.Parse()

	if *password == "" && flag.NArg() > 0 {
		*password = flag.Arg(0)
	}
	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: hashpassword [-skip-strength-check] -password <password>")
		os.Exit(2)
	}
	if !*skipCheck && !utils.IsStrongPassword(*password) {
		logrus.Fatal("Password does not satisfy the signup rules, use -skip-strength-check to hash it anyway")
	}

	hashedPassword, err := utils.HashPassword(*password)
	if err != nil {
		logrus.Fatalf("Error hashing password: %v", err)
	}

	if !utils.CheckPasswordHash(*password, hashedPassword) {
		logrus.Fatal("Hash verification failed")
	}
	fmt.Println(hashedPassword)
}
