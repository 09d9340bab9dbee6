package server

import (
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/mnehpets/capsuledash/endpoint"
	"github.com/mnehpets/capsuledash/esi"
)

// shipInfo is the profile's ship block: the raw ship plus its resolved type
// name.
type shipInfo struct {
	ShipItemID   int64  `json:"ship_item_id"`
	ShipName     string `json:"ship_name"`
	ShipTypeID   int64  `json:"ship_type_id"`
	ShipTypeName string `json:"ship_type_name"`
}

type profileResponse struct {
	Character    esi.Character   `json:"character"`
	Corporation  esi.Corporation `json:"corporation"`
	Alliance     *esi.Alliance   `json:"alliance,omitempty"`
	Ship         *shipInfo       `json:"ship,omitempty"`
	OnlineStatus bool            `json:"online_status"`
}

// handleProfile assembles the character dashboard header. The character sheet
// must load; corporation is required too; ship and online status are
// best-effort enrichments, as is the alliance lookup.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	ctx := r.Context()
	creds, ok := credentialsFromContext(ctx)
	if !ok {
		return nil, endpoint.Error(http.StatusUnauthorized, "Not authenticated", nil)
	}
	token := creds.AccessToken
	characterID := creds.Identity.CharacterID

	character, err := s.esi.Character(ctx, token, characterID)
	if err != nil {
		s.log.Error().Err(err).Int64("character_id", characterID).Msg("character fetch failed")
		return nil, endpoint.Error(http.StatusInternalServerError, "Failed to fetch profile data", err)
	}

	var (
		corporation esi.Corporation
		ship        *shipInfo
		online      bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		corporation, err = s.esi.Corporation(gctx, token, character.CorporationID)
		return err
	})
	g.Go(func() error {
		st, err := s.esi.Online(gctx, token, characterID)
		if err != nil {
			s.log.Warn().Err(err).Msg("online status unavailable")
			return nil
		}
		online = st.Online
		return nil
	})
	g.Go(func() error {
		sh, err := s.esi.Ship(gctx, token, characterID)
		if err != nil {
			s.log.Warn().Err(err).Msg("current ship unavailable")
			return nil
		}
		info := &shipInfo{
			ShipItemID: sh.ShipItemID,
			ShipName:   sh.ShipName,
			ShipTypeID: sh.ShipTypeID,
		}
		if st, err := s.esi.Type(gctx, sh.ShipTypeID); err == nil {
			info.ShipTypeName = st.Name
			if info.ShipName == "" {
				info.ShipName = st.Name
			}
		}
		ship = info
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Msg("profile enrichment failed")
		return nil, endpoint.Error(http.StatusInternalServerError, "Failed to fetch profile data", err)
	}

	var alliance *esi.Alliance
	if corporation.AllianceID != 0 {
		if a, err := s.esi.Alliance(ctx, token, corporation.AllianceID); err == nil {
			alliance = &a
		} else {
			s.log.Warn().Err(err).Int64("alliance_id", corporation.AllianceID).Msg("alliance lookup failed")
		}
	}

	return &endpoint.JSONRenderer{Value: profileResponse{
		Character:    character,
		Corporation:  corporation,
		Alliance:     alliance,
		Ship:         ship,
		OnlineStatus: online,
	}}, nil
}

type locationResponse struct {
	Location    esi.Location     `json:"location"`
	SolarSystem *esi.SolarSystem `json:"solar_system,omitempty"`
	Station     *esi.Station     `json:"station,omitempty"`
	Structure   *esi.Structure   `json:"structure,omitempty"`
}

// handleLocation reports where the character is, with best-effort solar
// system / station / structure enrichment.
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	ctx := r.Context()
	creds, ok := credentialsFromContext(ctx)
	if !ok {
		return nil, endpoint.Error(http.StatusUnauthorized, "Not authenticated", nil)
	}

	loc, err := s.esi.Location(ctx, creds.AccessToken, creds.Identity.CharacterID)
	if err != nil {
		status := http.StatusInternalServerError
		var apiErr *esi.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, endpoint.Error(status, "Failed to fetch location from EVE API", err)
	}

	resp := locationResponse{Location: loc}
	if sys, err := s.esi.SolarSystem(ctx, loc.SolarSystemID); err == nil {
		resp.SolarSystem = &sys
	} else {
		s.log.Warn().Err(err).Int64("system_id", loc.SolarSystemID).Msg("solar system lookup failed")
	}
	if loc.StationID != 0 {
		if st, err := s.esi.Station(ctx, loc.StationID); err == nil {
			resp.Station = &st
		} else {
			s.log.Warn().Err(err).Int64("station_id", loc.StationID).Msg("station lookup failed")
		}
	}
	if loc.StructureID != 0 {
		if st, err := s.esi.Structure(ctx, creds.AccessToken, loc.StructureID); err == nil {
			resp.Structure = &st
		} else {
			s.log.Warn().Err(err).Int64("structure_id", loc.StructureID).Msg("structure lookup failed")
		}
	}

	return &endpoint.JSONRenderer{Value: resp}, nil
}

type skillsResponse struct {
	Skills        []esi.Skill `json:"skills"`
	TotalSP       int64       `json:"total_sp"`
	UnallocatedSP int64       `json:"unallocated_sp"`
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	ctx := r.Context()
	creds, ok := credentialsFromContext(ctx)
	if !ok {
		return nil, endpoint.Error(http.StatusUnauthorized, "Not authenticated", nil)
	}

	skills, err := s.esi.Skills(ctx, creds.AccessToken, creds.Identity.CharacterID)
	if err != nil {
		s.log.Error().Err(err).Msg("skills fetch failed")
		return nil, endpoint.Error(http.StatusInternalServerError, "Failed to fetch character skills", err)
	}

	if skills.Skills == nil {
		skills.Skills = []esi.Skill{}
	}
	return &endpoint.JSONRenderer{Value: skillsResponse{
		Skills:        skills.Skills,
		TotalSP:       skills.TotalSP,
		UnallocatedSP: skills.UnallocatedSP,
	}}, nil
}

// unknownSkillName stands in when the batched name lookup misses an id.
const unknownSkillName = "Unknown Skill"

type skillQueueEntry struct {
	esi.SkillQueueEntry
	SkillName string `json:"skill_name"`
}

type skillQueueResponse struct {
	Queue []skillQueueEntry `json:"queue"`
}

// handleSkillQueue serves the training queue with skill names resolved in a
// single batched lookup.
func (s *Server) handleSkillQueue(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	ctx := r.Context()
	creds, ok := credentialsFromContext(ctx)
	if !ok {
		return nil, endpoint.Error(http.StatusUnauthorized, "Not authenticated", nil)
	}

	queue, err := s.esi.SkillQueue(ctx, creds.AccessToken, creds.Identity.CharacterID)
	if err != nil {
		s.log.Error().Err(err).Msg("skill queue fetch failed")
		return nil, endpoint.Error(http.StatusInternalServerError, "Failed to fetch skill queue", err)
	}

	seen := make(map[int64]struct{}, len(queue))
	ids := make([]int64, 0, len(queue))
	for _, entry := range queue {
		if _, ok := seen[entry.SkillID]; ok {
			continue
		}
		seen[entry.SkillID] = struct{}{}
		ids = append(ids, entry.SkillID)
	}

	nameByID := make(map[int64]string, len(ids))
	if names, err := s.esi.Names(ctx, ids); err == nil {
		for _, n := range names {
			nameByID[n.ID] = n.Name
		}
	} else {
		s.log.Warn().Err(err).Msg("skill name lookup failed")
	}

	entries := make([]skillQueueEntry, 0, len(queue))
	for _, entry := range queue {
		name, ok := nameByID[entry.SkillID]
		if !ok {
			name = unknownSkillName
		}
		entries = append(entries, skillQueueEntry{SkillQueueEntry: entry, SkillName: name})
	}

	return &endpoint.JSONRenderer{Value: skillQueueResponse{Queue: entries}}, nil
}

func (s *Server) handleVisitedSystems(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	ctx := r.Context()
	creds, ok := credentialsFromContext(ctx)
	if !ok {
		return nil, endpoint.Error(http.StatusUnauthorized, "Not authenticated", nil)
	}

	history, err := s.travel.VisitedSystems(ctx, creds.Identity.CharacterOwnerHash)
	if err != nil {
		s.log.Error().Err(err).Msg("travel history fetch failed")
		return nil, endpoint.Error(http.StatusInternalServerError, "Failed to fetch visited systems", err)
	}

	return &endpoint.JSONRenderer{Value: history}, nil
}
