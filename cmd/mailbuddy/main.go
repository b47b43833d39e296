package main

import "mailbuddy/internal/cli"

func main() {
	cli.Execute()
}
