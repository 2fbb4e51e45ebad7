// accountgen emits deterministic account fixtures: a metadata record, its
// master edition (both variants), a numbered print, and a subscription,
// all printed as base64 suitable for the decode CLI and for test vectors.
package main

import (
	"encoding/base64"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/gagliardetto/solana-go"

	"xdao.co/tokengate/accounts"
)

func address(seedByte byte) string {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return solana.PublicKeyFromBytes(pub).String()
}

func emit(name string, blob []byte, err error) {
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s (%d bytes)\n%s\n\n", name, len(blob), base64.StdEncoding.EncodeToString(blob))
}

func main() {
	authority := address(0xA1)
	mint := address(0xB2)
	masterMint := address(0xC3)
	subscription := address(0xD4)

	nonce := uint8(253)
	metadata := &accounts.MetadataRecord{
		UpdateAuthority:      authority,
		Mint:                 mint,
		Name:                 "Conformance Asset",
		Symbol:               "CONF",
		URI:                  "https://example.com/conf.json",
		SellerFeeBasisPoints: 500,
		Creators: []accounts.Creator{
			{Address: authority, Verified: true, Share: 100},
		},
		PrimarySaleHappened: true,
		IsMutable:           true,
		EditionNonce:        &nonce,
		SubscriptionRef:     subscription,
	}
	blob, err := accounts.EncodeMetadata(metadata)
	emit("metadata", blob, err)

	blob, err = accounts.EncodeEdition(&accounts.EditionRecord{
		Parent:        masterMint,
		EditionNumber: 7,
	})
	emit("edition", blob, err)

	maxSupply := uint64(1000)
	blob, err = accounts.EncodeMasterEdition(accounts.TagMasterEditionV2, &accounts.MasterEditionRecord{
		Supply:    12,
		MaxSupply: &maxSupply,
	})
	emit("master_edition_v2", blob, err)

	blob, err = accounts.EncodeMasterEdition(accounts.TagMasterEditionV1, &accounts.MasterEditionRecord{
		Supply:                           3,
		PrintingMint:                     address(0xE5),
		OneTimePrintingAuthorizationMint: address(0xF6),
	})
	emit("master_edition_v1", blob, err)

	blob, err = accounts.EncodeSubscription(&accounts.SubscriptionRecord{
		TokenMint:             mint,
		OwnerAddresses:        []string{authority},
		OwnerShares:           []uint8{100},
		WithdrawnAmounts:      []uint64{0},
		TotalPaid:             30_000_000,
		Price:                 10_000_000,
		PeriodDurationSeconds: 30 * 24 * 3600,
		PaidUntilEpochSeconds: 1_900_000_000,
	})
	emit("subscription", blob, err)
}
