// Command arqmon serves and inspects an arq job queue.
package main

func main() {
	Execute()
}
