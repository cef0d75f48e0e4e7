//go:build mage
// +build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/sh"
)

// Default target when running mage without arguments.
var Default = Build

// Build builds the server binary.
func Build() error {
	fmt.Println("Building server...")
	return sh.Run("go", "build", "-o", "bin/server", "./cmd/server")
}

// Test runs the test suite.
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet and staticcheck if available.
func Lint() error {
	fmt.Println("Running go vet...")
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	if _, err := sh.Output("which", "staticcheck"); err == nil {
		fmt.Println("Running staticcheck...")
		return sh.RunV("staticcheck", "./...")
	}
	return nil
}

// Run builds and starts the server.
func Run() error {
	if err := Build(); err != nil {
		return err
	}
	fmt.Println("Starting server...")
	return sh.RunV("./bin/server")
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm("bin")
}
