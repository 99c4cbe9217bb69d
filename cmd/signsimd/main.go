// Command signsimd drives a simulated run of a distributed ECDSA signing
// session over an in-memory cluster: a trusted dealer issues shares, N
// simulated nodes wire up pkg/ecdsasign.Session over pkg/cluster.MemoryCluster,
// and the resulting signature is printed once the master's session has
// finished.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luxfi/signsession/pkg/acl"
	"github.com/luxfi/signsession/pkg/cluster"
	"github.com/luxfi/signsession/pkg/curve"
	"github.com/luxfi/signsession/pkg/ecdsasign"
	"github.com/luxfi/signsession/pkg/keyshare"
	"github.com/luxfi/signsession/pkg/party"
)

var (
	numParties int
	threshold  int
	messageHex string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "signsimd",
		Short: "Simulate a distributed ECDSA signing session",
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one signing session to completion against an in-memory cluster",
		RunE:  runSimulation,
	}
)

func init() {
	runCmd.Flags().IntVarP(&numParties, "n", "n", 5, "total number of nodes")
	runCmd.Flags().IntVarP(&threshold, "t", "t", 2, "signing threshold")
	runCmd.Flags().StringVar(&messageHex, "hash", "", "32-byte message hash, hex-encoded (random if omitted)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "signsimd: %v\n", err)
		os.Exit(1)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if numParties < 1 || threshold < 1 || 2*threshold+1 > numParties {
		return fmt.Errorf("need n >= 2t+1, got n=%d t=%d", numParties, threshold)
	}

	logLevel := zerolog.InfoLevel
	if verbose {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(logLevel).With().Timestamp().Logger()

	messageHash, err := resolveMessageHash(messageHex)
	if err != nil {
		return err
	}

	group := curve.Secp256k1{}
	ids := make(party.IDSlice, numParties)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}

	dealer := keyshare.NewDealer(group, threshold, ids)
	version, shares, err := dealer.Issue()
	if err != nil {
		return fmt.Errorf("issue key-shares: %w", err)
	}
	jointPublicKey := shares[ids[0]].PublicKey

	mc := cluster.NewMemoryCluster()
	checker := acl.NewAllowList(ids...)
	master := ids[0]

	sessions := make(map[party.ID]*ecdsasign.Session, numParties)
	for _, id := range ids {
		store := keyshare.NewNodeStore()
		store.Install(version, shares[id])

		session := ecdsasign.New(ecdsasign.Params{
			SessionID: []byte("signsimd-session"),
			Self:      id,
			Master:    master,
			Threshold: threshold,
			AccessKey: []byte("signsimd-access-key"),
			Nonce:     1,
			Group:     group,
			Cluster:   mc.NodeTransport(id),
			KeyStore:  store,
			ACL:       checker,
			Logger:    logger,
		})
		sessions[id] = session

		id := id
		mc.Register(id, func(from party.ID, data []byte) {
			if err := sessions[id].ProcessMessage(from, data); err != nil {
				logger.Warn().Err(err).Uint32("self", uint32(id)).Uint32("from", uint32(from)).Msg("process message")
			}
		})
	}

	logger.Info().Int("n", numParties).Int("t", threshold).Str("hash", hex.EncodeToString(messageHash)).Msg("starting signing session")

	if err := sessions[master].Initialize(version, messageHash); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	sig, err := sessions[master].Wait()
	if err != nil {
		return fmt.Errorf("signing session failed: %w", err)
	}

	fmt.Printf("signature: r=%s s=%s v=%d\n",
		hex.EncodeToString(sig.R.Bytes()),
		hex.EncodeToString(sig.S.Bytes()),
		sig.V,
	)

	// Sanity check only — the session itself never verifies its own output.
	if curve.Verify(group, jointPublicKey, messageHash, sig) {
		fmt.Println("verify: ok")
	} else {
		fmt.Println("verify: FAILED")
		return fmt.Errorf("produced signature does not verify against the joint public key")
	}
	return nil
}

func resolveMessageHash(hexInput string) ([]byte, error) {
	if hexInput == "" {
		sum := sha256.Sum256([]byte(fmt.Sprintf("signsimd-demo-%d", time.Now().UnixNano())))
		return sum[:], nil
	}
	raw, err := hex.DecodeString(hexInput)
	if err != nil {
		return nil, fmt.Errorf("decode --hash: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("--hash must be 32 bytes, got %d", len(raw))
	}
	return raw, nil
}
