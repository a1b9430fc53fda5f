package main

import "go-forum-app/cmd/forumctl/commands"

func main() {
	commands.Execute()
}
