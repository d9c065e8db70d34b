package main

import "github.com/sadopc/apomodoro/cmd"

func main() {
	cmd.Execute()
}
