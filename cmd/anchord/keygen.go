package main

import (
	"fmt"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/wallet"
	"github.com/spf13/cobra"
)

var keyOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a key and print its address for the selected network",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := chaincfg.FromContext(cmd.Context())
		key, err := wallet.GenerateKey()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "address: %s\n", wallet.PubKeyHashAddress(params, key.PubKey()))
		fmt.Fprintf(out, "pubkey:  %s\n", wallet.PubKeyHex(key.PubKey()))
		// P2SH wrapping of the same pay-to-pubkey-hash script.
		fmt.Fprintf(out, "p2sh:    %s\n", wallet.ScriptHashAddress(params, wallet.PubKeyHashScript(key.PubKey())))
		if keyOut != "" {
			if err := wallet.SaveKey(params, keyOut, key); err != nil {
				return err
			}
			fmt.Fprintf(out, "key written to %s\n", keyOut)
			return nil
		}
		fmt.Fprintf(out, "wif:     %s\n", wallet.EncodePrivateKey(params, key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keyOut, "out", "o", "", "Write the key to this file instead of printing it")
}
