//go:build ignore

// sign-challenge.go - Run the full challenge/verify flow against a gate server
// with a throwaway keypair. Useful for smoke-testing a local deployment.
//
// Run: go run scripts/sign-challenge.go -server http://localhost:8080
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/gagliardetto/solana-go"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Gate server base URL")
	keyPath := flag.String("key", "", "Path to a Solana keypair file (generates a throwaway wallet if empty)")
	flag.Parse()

	var wallet solana.PrivateKey
	var err error
	if *keyPath != "" {
		wallet, err = solana.PrivateKeyFromSolanaKeygenFile(*keyPath)
		if err != nil {
			log.Fatalf("failed to load keypair: %v", err)
		}
	} else {
		wallet = solana.NewWallet().PrivateKey
		fmt.Println("Using throwaway wallet (expect a denial unless the gate is disabled)")
	}
	pubkey := wallet.PublicKey().String()
	fmt.Printf("Wallet: %s\n", pubkey)

	resp, err := http.Get(*server + "/auth/nonce?pubkey=" + url.QueryEscape(pubkey))
	if err != nil {
		log.Fatalf("challenge request failed: %v", err)
	}
	defer resp.Body.Close()

	var challenge struct {
		Nonce   string `json:"nonce"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
		log.Fatalf("failed to decode challenge: %v", err)
	}
	fmt.Printf("Nonce: %s\n", challenge.Nonce)

	sig, err := wallet.Sign([]byte(challenge.Message))
	if err != nil {
		log.Fatalf("failed to sign challenge: %v", err)
	}

	body, _ := json.Marshal(map[string]string{
		"pubkey":    pubkey,
		"signature": sig.String(),
		"message":   challenge.Message,
	})
	verifyResp, err := http.Post(*server+"/auth/verify", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("verify request failed: %v", err)
	}
	defer verifyResp.Body.Close()

	fmt.Printf("Verify status: %s\n", verifyResp.Status)
	var pretty bytes.Buffer
	var raw json.RawMessage
	if err := json.NewDecoder(verifyResp.Body).Decode(&raw); err == nil {
		_ = json.Indent(&pretty, raw, "", "  ")
		fmt.Println(pretty.String())
	}
}
