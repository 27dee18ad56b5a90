package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/layercake/layercake/internal/dataset"
	"github.com/layercake/layercake/internal/model"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Ingest and manage Datasets",
}

var (
	datasetProjectID string
	datasetFormat    string
	datasetDataType  string
)

var datasetIngestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a file into a new Dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if datasetProjectID == "" {
			return fmt.Errorf("--project is required")
		}
		path := args[0]
		blob, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		format := model.FileFormat(datasetFormat)
		if format == "" {
			ext, ok := dataset.FormatForExtension(path)
			if !ok {
				return fmt.Errorf("cannot infer format from filename %q, pass --format", path)
			}
			format = ext
		}

		var declaredDataType *model.DataType
		if datasetDataType != "" {
			dt := model.DataType(datasetDataType)
			declaredDataType = &dt
		}

		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		ds, err := a.datasets.CreateFromFile(context.Background(), datasetProjectID, path, "", path, format, blob, declaredDataType)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\n", ds.ID, ds.Status, ds.DataType)
		return nil
	},
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Datasets in a Project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if datasetProjectID == "" {
			return fmt.Errorf("--project is required")
		}
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		datasets, err := a.store.ListDatasets(context.Background(), datasetProjectID)
		if err != nil {
			return err
		}
		for _, d := range datasets {
			fmt.Printf("%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Status, d.DataType)
		}
		return nil
	},
}

var datasetDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a Dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.datasets.Delete(context.Background(), args[0])
	},
}

func init() {
	datasetIngestCmd.Flags().StringVar(&datasetProjectID, "project", "", "Project id")
	datasetIngestCmd.Flags().StringVar(&datasetFormat, "format", "", "declared file format (default: inferred from extension)")
	datasetIngestCmd.Flags().StringVar(&datasetDataType, "data-type", "", "declared data type (default: inferred)")
	datasetListCmd.Flags().StringVar(&datasetProjectID, "project", "", "Project id")

	datasetCmd.AddCommand(datasetIngestCmd, datasetListCmd, datasetDeleteCmd)
	rootCmd.AddCommand(datasetCmd)
}
