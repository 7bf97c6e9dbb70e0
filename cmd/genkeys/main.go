// Command genkeys generates an Ed25519 keypair and prints it in the base64
// form expected by the AUTH_PRIVATE_KEY and AUTH_PUBLIC_KEY env vars. The
// signer and verifier must be deployed with a matching pair; rotating keys
// means re-running this and redeploying both.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

func main() {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to generate keypair:", err)
		os.Exit(1)
	}

	fmt.Println("AUTH_PRIVATE_KEY=" + base64.StdEncoding.EncodeToString(privateKey))
	fmt.Println("AUTH_PUBLIC_KEY=" + base64.StdEncoding.EncodeToString(publicKey))
}
