// Package inventory loads the provisioned resource inventory from YAML.
package inventory

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"ppm-backend/internal/domain"
	"ppm-backend/internal/pkg/constants"
	"ppm-backend/internal/pkg/validation"

	"gopkg.in/yaml.v3"
)

// File models an inventory YAML document.
type File struct {
	Pools []struct {
		ID            string `yaml:"id"`
		Name          string `yaml:"name"`
		TotalQuantity int    `yaml:"total_quantity"`
		Department    string `yaml:"department"`
		Category      string `yaml:"category"`
	} `yaml:"pools"`
	Projects []struct {
		ID           string `yaml:"id"`
		Name         string `yaml:"name"`
		Status       string `yaml:"status"`
		Start        string `yaml:"start"`
		End          string `yaml:"end"`
		Requirements []struct {
			Pool     string `yaml:"pool"`
			Count    int    `yaml:"count"`
			Duration int    `yaml:"duration"`
			Unit     string `yaml:"unit"`
		} `yaml:"requirements"`
	} `yaml:"projects"`
	Resources []struct {
		ID              string   `yaml:"id"`
		Kind            string   `yaml:"kind"`
		Name            string   `yaml:"name"`
		Size            string   `yaml:"size"`
		Model           string   `yaml:"model"`
		Health          *float64 `yaml:"health"`
		Status          string   `yaml:"status"`
		LastMaintenance string   `yaml:"last_maintenance"`
		NextMaintenance string   `yaml:"next_maintenance"`
	} `yaml:"resources"`
	Users []SeedUser `yaml:"users"`
}

// SeedUser is a development login. Password is hashed at seed time.
type SeedUser struct {
	Email      string `yaml:"email"`
	Fullname   string `yaml:"fullname"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
	Password   string `yaml:"password"`
}

// Inventory is the validated, typed content of a File.
type Inventory struct {
	Pools     []domain.ResourcePool
	Projects  []domain.Project
	Resources []domain.PhysicalResource
	Users     []SeedUser
}

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("inventory %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses data strictly; unknown keys are an error.
func FromYAML(data []byte) (*Inventory, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	return f.Build()
}

func optionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a YYYY-MM-DD date", field, s)
	}
	return &t, nil
}

// Build validates f and converts it to domain values.
func (f *File) Build() (*Inventory, error) {
	inv := &Inventory{}

	pools := map[string]bool{}
	for i, p := range f.Pools {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("pools[%d]: id and name are required", i)
		}
		if !validation.IsValidID(p.ID) {
			return nil, fmt.Errorf("pools[%d]: invalid id %q", i, p.ID)
		}
		if pools[p.ID] {
			return nil, fmt.Errorf("pools[%d]: duplicate id %s", i, p.ID)
		}
		if p.TotalQuantity < 0 {
			return nil, fmt.Errorf("pool %s: %w", p.ID, domain.ErrNegativeQuantity)
		}
		pools[p.ID] = true
		inv.Pools = append(inv.Pools, domain.ResourcePool{
			ID: p.ID, Name: p.Name, TotalQuantity: p.TotalQuantity,
			Department: p.Department, Category: p.Category,
		})
	}

	projects := map[string]bool{}
	for i, p := range f.Projects {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("projects[%d]: id and name are required", i)
		}
		if !validation.IsValidID(p.ID) {
			return nil, fmt.Errorf("projects[%d]: invalid id %q", i, p.ID)
		}
		if projects[p.ID] {
			return nil, fmt.Errorf("projects[%d]: duplicate id %s", i, p.ID)
		}
		projects[p.ID] = true
		start, err := optionalDate("project "+p.ID+" start", p.Start)
		if err != nil {
			return nil, err
		}
		end, err := optionalDate("project "+p.ID+" end", p.End)
		if err != nil {
			return nil, err
		}
		if start != nil && end != nil && start.After(*end) {
			return nil, fmt.Errorf("project %s: start %s is after end %s", p.ID, p.Start, p.End)
		}
		status := p.Status
		if status == "" {
			status = "planned"
		}
		proj := domain.Project{ID: p.ID, Name: p.Name, Status: status, StartDate: start, EndDate: end}
		for j, r := range p.Requirements {
			if !pools[r.Pool] {
				return nil, fmt.Errorf("project %s requirement %d: unknown pool %q", p.ID, j, r.Pool)
			}
			if r.Count < 0 {
				return nil, fmt.Errorf("project %s requirement %d: count cannot be negative", p.ID, j)
			}
			unit := domain.DurationUnit(r.Unit)
			switch unit {
			case "":
				unit = domain.UnitMonth
			case domain.UnitDay, domain.UnitMonth, domain.UnitYear:
			default:
				return nil, fmt.Errorf("project %s requirement %d: unknown unit %q", p.ID, j, r.Unit)
			}
			proj.Requirements = append(proj.Requirements, domain.ResourceRequirement{
				ID:             fmt.Sprintf("%s-%s-%d", p.ID, r.Pool, j),
				ProjectID:      p.ID,
				ResourcePoolID: r.Pool,
				Count:          r.Count,
				Duration:       r.Duration,
				Unit:           unit,
			})
		}
		inv.Projects = append(inv.Projects, proj)
	}

	resources := map[string]bool{}
	for i, r := range f.Resources {
		if r.ID == "" || r.Name == "" {
			return nil, fmt.Errorf("resources[%d]: id and name are required", i)
		}
		if !validation.IsValidID(r.ID) {
			return nil, fmt.Errorf("resources[%d]: invalid id %q", i, r.ID)
		}
		if resources[r.ID] {
			return nil, fmt.Errorf("resources[%d]: duplicate id %s", i, r.ID)
		}
		resources[r.ID] = true
		res := domain.PhysicalResource{
			ID: r.ID, Kind: domain.ResourceKind(r.Kind), Name: r.Name,
			Size: r.Size, Model: r.Model, Health: 100, Version: 1,
		}
		if _, err := res.Variant(); err != nil {
			return nil, fmt.Errorf("resource %s: %w", r.ID, err)
		}
		if r.Health != nil {
			if *r.Health < 0 || *r.Health > 100 {
				return nil, fmt.Errorf("resource %s: health must be between 0 and 100", r.ID)
			}
			res.Health = *r.Health
		}
		switch domain.ResourceStatus(r.Status) {
		case "", domain.StatusAvailable:
			res.Status = domain.StatusAvailable
		case domain.StatusMaintenance:
			res.Status = domain.StatusMaintenance
		default:
			// occupied needs a booking, which only reserve can create
			return nil, fmt.Errorf("resource %s: initial status must be available or maintenance", r.ID)
		}
		var err error
		if res.LastMaintenance, err = optionalDate("resource "+r.ID+" last_maintenance", r.LastMaintenance); err != nil {
			return nil, err
		}
		if res.NextMaintenance, err = optionalDate("resource "+r.ID+" next_maintenance", r.NextMaintenance); err != nil {
			return nil, err
		}
		inv.Resources = append(inv.Resources, res)
	}

	emails := map[string]bool{}
	for i, u := range f.Users {
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("users[%d]: email and password are required", i)
		}
		if !validation.IsValidEmail(u.Email) {
			return nil, fmt.Errorf("users[%d]: invalid email %q", i, u.Email)
		}
		if !validation.IsValidPassword(u.Password) {
			return nil, fmt.Errorf("user %s: password needs 8 characters with a letter, a digit and a symbol", u.Email)
		}
		if u.Fullname != "" && !validation.IsValidFullname(u.Fullname) {
			return nil, fmt.Errorf("user %s: invalid fullname", u.Email)
		}
		if emails[u.Email] {
			return nil, fmt.Errorf("users[%d]: duplicate email %s", i, u.Email)
		}
		emails[u.Email] = true
		if u.Role == "" {
			u.Role = constants.Viewer
		}
		if !constants.IsValidRole(u.Role) {
			return nil, fmt.Errorf("user %s: invalid role %q", u.Email, u.Role)
		}
		inv.Users = append(inv.Users, u)
	}
	return inv, nil
}
