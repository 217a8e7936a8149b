package main

import "github.com/anupcshan/hexbin/cmd/hexbin/cmd"

func main() {
	cmd.Execute()
}
