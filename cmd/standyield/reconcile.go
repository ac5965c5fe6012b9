package main

import (
	"github.com/spf13/cobra"

	"github.com/standyield/standyield/api/v1alpha1"
)

func newReconcileCommand(app *appContext) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "reconcile -f vectors.yaml",
		Short: "Reconcile standalone utilization breakdowns",
		Long: "Reconcile checks each basal area, trees per hectare and diameter breakdown of\n" +
			"a UtilizationVectorList document against its totals and adjusts it when they\n" +
			"disagree. Failed breakdowns keep their input values and record the error.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			list, err := v1alpha1.DecodeVectorList(in)
			_ = in.Close()
			if err != nil {
				return err
			}
			proc, err := app.newProcessor()
			if err != nil {
				return err
			}
			proc.ReconcileVectorList(cmd.Context(), list)
			return writeOutput(cmd, output, list)
		},
	}
	cmd.Flags().StringVarP(&input, "file", "f", "", "UtilizationVectorList document (\"-\" for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the reconciled document here instead of stdout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
