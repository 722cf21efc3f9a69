package main

import "github.com/p2pclaw/hive/cmd/cli"

func main() {
	cli.Execute()
}
