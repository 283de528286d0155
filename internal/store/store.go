// Package store persists the whole event collection as one JSON document.
// Every operation is load-all or save-all; there are no partial updates.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"crewcal/internal/domain"
)

const defaultFileName = "events.json"

// Store reads and writes the event document at Path.
type Store struct {
	Path string
}

// Open ensures the data directory and an empty document exist.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{Path: filepath.Join(dir, defaultFileName)}
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		if err := s.Save(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the full document. Events and tasks persisted before stable ids
// existed get one assigned; it is written back on the next Save.
func (s *Store) Load() ([]domain.Event, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	ensureIDs(events)
	return events, nil
}

// Save writes the full document atomically (temp file + rename).
func (s *Store) Save(events []domain.Event) error {
	if events == nil {
		events = []domain.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("replace %s: %w", s.Path, err)
	}
	return nil
}

// SeedIfEmpty installs the default calendar when the document has no events.
// Returns true when seeding happened.
func (s *Store) SeedIfEmpty() (bool, error) {
	events, err := s.Load()
	if err != nil {
		return false, err
	}
	if len(events) > 0 {
		return false, nil
	}
	if err := s.Save(DefaultCalendar()); err != nil {
		return false, err
	}
	return true, nil
}

func ensureIDs(events []domain.Event) {
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.New().String()
		}
		for j := range events[i].Tasks {
			if events[i].Tasks[j].ID == "" {
				events[i].Tasks[j].ID = uuid.New().String()
			}
		}
	}
}

func mustEvent(name, start, end, acting, partners, notes string) domain.Event {
	e, err := domain.NewEvent(name, start, end, acting, partners, notes)
	if err != nil {
		panic(err)
	}
	return e
}

func mustTask(title, area, due string, assignees ...int64) domain.Task {
	t, err := domain.NewTask(title, area, due, "", nil, assignees)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultCalendar is the seed plan for the 2026 season.
func DefaultCalendar() []domain.Event {
	summer := mustEvent("8ª Technovation Summer School for Girls", "2026-01-10", "2026-05-21",
		"Responsável", "TechGirls (Isadora e Dani)", "Curso e escola")
	summer.Tasks = []domain.Task{
		mustTask("Planejar divulgação de abertura", "marketing", "2025-12-27"),
		mustTask("Definir monitoras e cronograma", "ensino", "2026-01-03"),
	}

	workshop := mustEvent("Workshop Mulheres na IA", "2026-02-27", "2026-02-27",
		"Divulgação nas redes e participação", "Meninas Digitais Sudeste", "Evento de extensão")
	workshop.Tasks = []domain.Task{
		mustTask("Produzir posts para redes sociais", "marketing", "2026-02-13"),
		mustTask("Organizar presença da equipe", "diretoria", "2026-02-20"),
	}

	pint := mustEvent("Pint of Science 2026", "2026-05-18", "2026-05-20",
		"Colaboração", "CCEx - ICMC", "Evento de extensão")
	pint.Tasks = []domain.Task{
		mustTask("Mapear empresas parceiras", "financeiro", "2026-05-04"),
		mustTask("Escalar voluntárias", "rh", "2026-05-08"),
	}

	webmedia := mustEvent("WebMedia 4 Everyone", "2026-11-09", "2026-11-13",
		"Apresentação de artigo", "Comunidade acadêmica", "Participação em eventos acadêmicos")
	webmedia.Tasks = []domain.Task{
		mustTask("Fechar submissão do artigo", "ensino", "2026-07-03"),
		mustTask("Reservar orçamento para deslocamento", "financeiro", "2026-09-15"),
	}

	return []domain.Event{summer, workshop, pint, webmedia}
}
