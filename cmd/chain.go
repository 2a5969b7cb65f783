package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Inspect and manage the variable → prompt catalogue",
}

var chainListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every chain variable and its prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		chains, err := env.Store.ListChains(ctx)
		if err != nil {
			return err
		}
		if len(chains) == 0 {
			fmt.Println("no chains in the catalogue")
			return nil
		}
		for _, c := range chains {
			fmt.Printf("%s\t%s\n", c.Variable, c.Prompt)
		}
		return nil
	},
}

var chainDeleteCmd = &cobra.Command{
	Use:   "delete <variable>",
	Short: "Remove a chain variable from the catalogue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.DeleteChain(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted chain %s\n", args[0])
		return nil
	},
}

var chainValuesCmd = &cobra.Command{
	Use:   "values <variable>",
	Short: "List the distinct labels already recorded for a variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		values, err := env.Store.LabelValues(ctx, args[0])
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Println(v)
		}
		return nil
	},
}

func init() {
	chainCmd.AddCommand(chainListCmd, chainDeleteCmd, chainValuesCmd)
	rootCmd.AddCommand(chainCmd)
}
