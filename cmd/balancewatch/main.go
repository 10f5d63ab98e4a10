package main

import "github.com/vietddude/balancewatch/internal/cli"

func main() {
	cli.Execute()
}
