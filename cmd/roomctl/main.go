package main

import "github.com/mcoot/roomhost/internal/cli"

func main() {
	cli.Execute()
}
