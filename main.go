package main

import "github.com/bonfito/billie/cmd"

func main() {
	cmd.Execute()
}
