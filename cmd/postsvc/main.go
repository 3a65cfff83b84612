// Command postsvc serves the posts REST API backed by MongoDB.
package main

import "github.com/nimburion/postsvc/pkg/cli"

func main() {
	cli.Execute(cli.NewRootCommand())
}
