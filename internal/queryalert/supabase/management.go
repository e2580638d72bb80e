package supabase

import (
	"context"
	"fmt"
	"net/url"
)

// ManagementClient lists projects and organizations.
type ManagementClient struct {
	*client
}

func NewManagementClient(opts Options) *ManagementClient {
	return &ManagementClient{client: newClient(opts)}
}

// BaseURL returns the API host in use.
func (c *ManagementClient) BaseURL() string { return c.baseURL }

func (c *ManagementClient) ListProjects(ctx context.Context) ([]Project, error) {
	projects := []Project{}
	if err := c.getJSON(ctx, "/v1/projects", nil, &projects); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (c *ManagementClient) GetProject(ctx context.Context, ref string) (*Project, error) {
	var p Project
	if err := c.getJSON(ctx, "/v1/projects/"+url.PathEscape(ref), nil, &p); err != nil {
		return nil, fmt.Errorf("get project %s: %w", ref, err)
	}
	return &p, nil
}

func (c *ManagementClient) ListOrganizations(ctx context.Context) ([]Organization, error) {
	orgs := []Organization{}
	if err := c.getJSON(ctx, "/v1/organizations", nil, &orgs); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}
