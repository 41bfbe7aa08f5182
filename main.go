package main

import "github.com/AvaProtocol/aa-keyring/cmd"

func main() {
	cmd.Execute()
}
