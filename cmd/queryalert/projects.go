package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/supabase"
)

var projectsFlagOrgs bool

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Supabase projects (or organizations) visible to the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if cfg.Supabase.AccessToken == "" {
			return fmt.Errorf("supabase.access_token is required (or %s_SUPABASE_ACCESS_TOKEN)", config.EnvPrefix)
		}
		client := supabase.NewManagementClient(supabaseOptions(cfg))

		ctx, stop := commandContext()
		defer stop()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer tw.Flush()

		if projectsFlagOrgs {
			orgs, err := client.ListOrganizations(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "ID\tNAME\tSLUG")
			for _, o := range orgs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", o.ID, o.Name, o.Slug)
			}
			return nil
		}

		projects, err := client.ListProjects(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "REF\tNAME\tREGION\tSTATUS")
		for _, p := range projects {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Ref, p.Name, p.Region, p.Status)
		}
		return nil
	},
}

func init() {
	projectsCmd.Flags().BoolVar(&projectsFlagOrgs, "orgs", false, "list organizations instead of projects")
}
