package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/extractor"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
)

var extractLang string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the handler blocks extracted from a backend source file",
	Long: `The extract command prints the payload that generate would send to the LLM for the
given source file. The language is taken from the file extension unless --lang is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.New(errors.CodeFileNotFound, "cmd", "reading "+args[0], err)
		}

		lang := extractor.LanguageFromExtension(filepath.Ext(args[0]))
		if extractLang != "" {
			if lang, err = extractor.ParseLanguage(extractLang); err != nil {
				return err
			}
		}

		var result extractor.Result
		if lang == extractor.Unknown {
			result = extractor.Extract(string(data))
		} else {
			result = extractor.ExtractAs(string(data), lang)
		}
		if result.Empty() {
			return errors.Newf(errors.CodeExtractionEmpty, "cmd", "no handler blocks found in %s", args[0])
		}

		logger.Debugf("Extracted %d blocks (%d health checks excluded) from %s", len(result.Blocks), result.Excluded, args[0])
		fmt.Fprintln(cmd.OutOrStdout(), result.Payload())
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractLang, "lang", "", "Source language: python, java or javascript")
}
