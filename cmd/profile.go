package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/bizratio-cli/internal/table"
	"github.com/KaramelBytes/bizratio-cli/internal/utils"
)

var (
	profOutputPath   string
	profDelimiter    string
	profSheetName    string
	profSheetIndex   int
	profHeaderMarker string
	profMaxValues    int
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "List the unique values of each column of a CSV/TSV/XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := table.Options{Sheet: profSheetName, SheetIndex: profSheetIndex, HeaderMarker: profHeaderMarker}
		switch profDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", profDelimiter)
		}
		t, err := table.ReadFile(path, opt)
		if err != nil {
			return err
		}
		md := table.Describe(t).Markdown(profMaxValues)

		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().StringVar(&profDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (auto-detect if omitted)")
	profileCmd.Flags().StringVar(&profSheetName, "sheet-name", "", "XLSX: sheet name to read")
	profileCmd.Flags().IntVar(&profSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	profileCmd.Flags().StringVar(&profHeaderMarker, "header-marker", "", "first row containing this cell is the header (skips title rows)")
	profileCmd.Flags().IntVar(&profMaxValues, "max-values", 50, "maximum unique values listed per column")
}
