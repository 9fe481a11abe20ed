package main

import "reviewhub/cmd/reviewhubctl/command"

func main() {
	command.Execute()
}
