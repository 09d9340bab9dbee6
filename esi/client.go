// Package esi is a minimal client for the EVE Swagger Interface, covering the
// endpoints the dashboard reads. Authenticated calls take the session's bearer
// token per request; the client itself holds no credentials.
package esi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public ESI endpoint.
const DefaultBaseURL = "https://esi.evetech.net/latest"

// requestTimeout bounds every outbound ESI call.
const requestTimeout = 20 * time.Second

// maxErrorBody caps how much of an error response is read for logging.
const maxErrorBody = 4096

// APIError is a non-2xx answer from ESI.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("esi: status %d: %s", e.StatusCode, e.Body)
}

// Client calls ESI.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Client. An empty baseURL selects the public endpoint.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

// do sends req, decodes a 2xx JSON body into dst, and converts anything else
// into an *APIError.
func (c *Client) do(req *http.Request, dst any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("esi: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		c.log.Error().
			Str("path", req.URL.Path).
			Int("status", resp.StatusCode).
			Msg("esi request failed")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("esi: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// get fetches path into dst. token may be empty for public endpoints.
func (c *Client) get(ctx context.Context, path, token string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, dst)
}

// Character fetches the public character sheet.
func (c *Client) Character(ctx context.Context, token string, characterID int64) (Character, error) {
	var out Character
	err := c.get(ctx, fmt.Sprintf("/characters/%d/", characterID), token, &out)
	return out, err
}

// Corporation fetches the public corporation sheet.
func (c *Client) Corporation(ctx context.Context, token string, corporationID int64) (Corporation, error) {
	var out Corporation
	err := c.get(ctx, fmt.Sprintf("/corporations/%d/", corporationID), token, &out)
	return out, err
}

// Alliance fetches the public alliance sheet.
func (c *Client) Alliance(ctx context.Context, token string, allianceID int64) (Alliance, error) {
	var out Alliance
	err := c.get(ctx, fmt.Sprintf("/alliances/%d/", allianceID), token, &out)
	return out, err
}

// Ship fetches the character's current ship. Requires
// esi-location.read_ship_type.v1.
func (c *Client) Ship(ctx context.Context, token string, characterID int64) (Ship, error) {
	var out Ship
	err := c.get(ctx, fmt.Sprintf("/characters/%d/ship/", characterID), token, &out)
	return out, err
}

// Type fetches a universe inventory type. Public.
func (c *Client) Type(ctx context.Context, typeID int64) (Type, error) {
	var out Type
	err := c.get(ctx, fmt.Sprintf("/universe/types/%d/", typeID), "", &out)
	return out, err
}

// Online fetches the character's online status. Requires
// esi-location.read_online.v1.
func (c *Client) Online(ctx context.Context, token string, characterID int64) (Online, error) {
	var out Online
	err := c.get(ctx, fmt.Sprintf("/characters/%d/online/", characterID), token, &out)
	return out, err
}

// Location fetches the character's location. Requires
// esi-location.read_location.v1.
func (c *Client) Location(ctx context.Context, token string, characterID int64) (Location, error) {
	var out Location
	err := c.get(ctx, fmt.Sprintf("/characters/%d/location/", characterID), token, &out)
	return out, err
}

// SolarSystem fetches a public solar system record.
func (c *Client) SolarSystem(ctx context.Context, systemID int64) (SolarSystem, error) {
	var out SolarSystem
	err := c.get(ctx, fmt.Sprintf("/universe/systems/%d/", systemID), "", &out)
	return out, err
}

// Station fetches a public NPC station record.
func (c *Client) Station(ctx context.Context, stationID int64) (Station, error) {
	var out Station
	err := c.get(ctx, fmt.Sprintf("/universe/stations/%d/", stationID), "", &out)
	return out, err
}

// Structure fetches a player structure the token's character can dock at.
func (c *Client) Structure(ctx context.Context, token string, structureID int64) (Structure, error) {
	var out Structure
	err := c.get(ctx, fmt.Sprintf("/universe/structures/%d/", structureID), token, &out)
	return out, err
}

// Skills fetches the character's skill sheet. Requires
// esi-skills.read_skills.v1.
func (c *Client) Skills(ctx context.Context, token string, characterID int64) (Skills, error) {
	var out Skills
	err := c.get(ctx, fmt.Sprintf("/characters/%d/skills/", characterID), token, &out)
	return out, err
}

// SkillQueue fetches the character's training queue. Requires
// esi-skills.read_skillqueue.v1.
func (c *Client) SkillQueue(ctx context.Context, token string, characterID int64) ([]SkillQueueEntry, error) {
	var out []SkillQueueEntry
	err := c.get(ctx, fmt.Sprintf("/characters/%d/skillqueue/", characterID), token, &out)
	return out, err
}

// Names resolves up to 1000 ids to names in one public batched call.
func (c *Client) Names(ctx context.Context, ids []int64) ([]Name, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/universe/names/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out []Name
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
