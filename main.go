package main

import "github.com/safebank/banking/cmd"

func main() {
	cmd.Execute()
}
