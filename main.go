package main

import "github.com/KaramelBytes/crashinsight/cmd"

func main() {
	cmd.Execute()
}
