package wheel

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/seagrayinc/gowheel/internal/dinput"
	"github.com/seagrayinc/gowheel/pkg/profile"
)

// CurrentProfile returns a copy of the active profile.
func (s *Service) CurrentProfile() profile.Profile { return s.current }

// ProfileNames lists the loaded profiles, sorted.
func (s *Service) ProfileNames() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProfile returns a saved profile by name.
func (s *Service) GetProfile(name string) (profile.Profile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

// SetActiveProfile switches the active profile by name. FFB picks up the
// new tuning on the next frame.
func (s *Service) SetActiveProfile(name string) error {
	p, ok := s.profiles[name]
	if !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	s.current = p
	s.log.Info("profile activated", slog.String("profile", name))
	return nil
}

// SaveProfile stores a profile in memory and on disk. Saving the active
// profile's name also updates the live copy.
func (s *Service) SaveProfile(p profile.Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	s.profiles[p.Name] = p
	if p.Name == s.current.Name {
		s.current = p
	}
	if s.store == nil {
		return nil
	}
	return s.store.Save(p)
}

// DeleteProfile removes a profile. The active profile falls back to
// Default when deleted.
func (s *Service) DeleteProfile(name string) error {
	if name == "Default" {
		return fmt.Errorf("the Default profile cannot be deleted")
	}
	delete(s.profiles, name)
	if s.current.Name == name {
		s.current = s.profiles["Default"]
	}
	if s.store == nil {
		return nil
	}
	return s.store.Delete(name)
}

// selectProfileForModel picks the saved profile bound to the connected
// wheel's VID/PID, keeping the current one when no profile matches.
func (s *Service) selectProfileForModel(desc dinput.DeviceDescriptor) {
	for _, p := range s.profiles {
		if p.TargetVendorID == desc.VendorID && p.TargetProductID == desc.ProductID &&
			p.TargetVendorID != 0 {
			s.current = p
			return
		}
	}
}
