package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"anibridge/internal/interval"
)

// Provider names used in descriptors.
const (
	ProviderAniList   = "anilist"
	ProviderAniDB     = "anidb"
	ProviderTVDB      = "tvdb"
	ProviderTMDBShow  = "tmdb_show"
	ProviderTMDBMovie = "tmdb_movie"
	ProviderMAL       = "mal"
	ProviderIMDb      = "imdb"
)

// Scopes that are not seasons.
const (
	ScopeMovie = "movie"
	ScopeTV    = "tv"
)

var knownProviders = map[string]bool{
	ProviderAniList:   true,
	ProviderAniDB:     true,
	ProviderTVDB:      true,
	ProviderTMDBShow:  true,
	ProviderTMDBMovie: true,
	ProviderMAL:       true,
	ProviderIMDb:      true,
}

// Descriptor identifies a unit of content in one provider: a movie, a show,
// or a single season. All three parts are stored lower case so equality is
// case-insensitive.
type Descriptor struct {
	Provider string
	EntryID  string
	Scope    string
}

// NewDescriptor normalizes and validates the triple.
func NewDescriptor(provider, entryID, scope string) (Descriptor, error) {
	d := Descriptor{
		Provider: strings.ToLower(strings.TrimSpace(provider)),
		EntryID:  strings.ToLower(strings.TrimSpace(entryID)),
		Scope:    strings.ToLower(strings.TrimSpace(scope)),
	}
	if !knownProviders[d.Provider] {
		return Descriptor{}, fmt.Errorf("unknown provider %q", provider)
	}
	if d.EntryID == "" {
		return Descriptor{}, fmt.Errorf("descriptor entry id is empty")
	}
	switch d.Scope {
	case ScopeMovie, ScopeTV:
	default:
		if _, err := interval.ParseSeasonKey(d.Scope); err != nil {
			return Descriptor{}, fmt.Errorf("invalid descriptor scope %q", scope)
		}
	}
	return d, nil
}

// ParseDescriptor parses "provider:entry_id:scope".
func ParseDescriptor(text string) (Descriptor, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return Descriptor{}, fmt.Errorf("descriptor %q must look like provider:id:scope", text)
	}
	return NewDescriptor(parts[0], parts[1], parts[2])
}

func idDescriptor(provider string, id int, scope string) Descriptor {
	return Descriptor{Provider: provider, EntryID: strconv.Itoa(id), Scope: scope}
}

func (d Descriptor) String() string {
	return d.Provider + ":" + d.EntryID + ":" + d.Scope
}

// IsZero reports whether d is unset.
func (d Descriptor) IsZero() bool { return d == Descriptor{} }

// MarshalText encodes the descriptor in its string form.
func (d Descriptor) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the string form.
func (d *Descriptor) UnmarshalText(text []byte) error {
	parsed, err := ParseDescriptor(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
