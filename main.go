package main

import "github.com/iksnae/dealerchat/cmd"

func main() {
	cmd.Execute()
}
