// Package profile tracks the company canvas a conversation fills in: six
// free-text fields the assistant extracts from what the user says. The
// in-process cache is the source of truth during a conversation; PostgreSQL
// persistence is best effort and keyed by session.
package profile

import (
	"fmt"
	"sync"
)

// Profile is the company canvas. All fields are free text; empty means not
// yet provided.
type Profile struct {
	Name            string `json:"name"`
	Industry        string `json:"industry"`
	Description     string `json:"description"`
	AIMaturityLevel string `json:"aiMaturityLevel"`
	AIUsage         string `json:"aiUsage"`
	Goals           string `json:"goals"`
}

// Field names accepted by SetField, matching the tool schema the model sees.
const (
	FieldName            = "name"
	FieldIndustry        = "industry"
	FieldDescription     = "description"
	FieldAIMaturityLevel = "aiMaturityLevel"
	FieldAIUsage         = "aiUsage"
	FieldGoals           = "goals"
)

// FieldNames lists every accepted field name in canvas order.
func FieldNames() []string {
	return []string{
		FieldName, FieldIndustry, FieldDescription,
		FieldAIMaturityLevel, FieldAIUsage, FieldGoals,
	}
}

// SetField assigns value to the named field. Unknown field names error so a
// hallucinated tool argument cannot silently drop data.
func (p *Profile) SetField(field, value string) error {
	switch field {
	case FieldName:
		p.Name = value
	case FieldIndustry:
		p.Industry = value
	case FieldDescription:
		p.Description = value
	case FieldAIMaturityLevel:
		p.AIMaturityLevel = value
	case FieldAIUsage:
		p.AIUsage = value
	case FieldGoals:
		p.Goals = value
	default:
		return fmt.Errorf("unknown profile field %q", field)
	}
	return nil
}

// Cache holds per-session profiles for the life of the process. Reads of a
// session that was never written return the zero profile. Safe for
// concurrent use; concurrent writers of the same field are last-write-wins.
type Cache struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{profiles: make(map[string]Profile)}
}

// Get returns the profile for sessionID, zero-valued when absent.
func (c *Cache) Get(sessionID string) Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profiles[sessionID]
}

// Set replaces the profile for sessionID.
func (c *Cache) Set(sessionID string, p Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[sessionID] = p
}

// UpdateField sets one field on sessionID's profile, leaving the other
// fields untouched, and returns the updated profile.
func (c *Cache) UpdateField(sessionID, field, value string) (Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.profiles[sessionID]
	if err := p.SetField(field, value); err != nil {
		return Profile{}, err
	}
	c.profiles[sessionID] = p
	return p, nil
}
