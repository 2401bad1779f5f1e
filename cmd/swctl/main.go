// Command swctl scores embeddings and poses offline and seeds suspects.
package main

func main() {
	Execute()
}
