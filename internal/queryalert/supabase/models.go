package supabase

// Project is a Supabase project as listed by the Management API.
type Project struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Ref            string `json:"ref"`
	OrganizationID string `json:"organization_id"`
	Status         string `json:"status"`
	Region         string `json:"region"`
}

// Organization is a Supabase organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
