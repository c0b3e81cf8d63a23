package devserver

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// photo is the stored representation of an uploaded picture. The bytes stay
// in memory; URL is where the picture can be fetched back.
type photo struct {
	ID          string `json:"id"`
	Nome        string `json:"nome"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`

	data []byte
}

// petRecord and tutorRecord use the Portuguese wire field names directly so
// the handlers can marshal them as-is.
type petRecord struct {
	ID      string `json:"id"`
	Nome    string `json:"nome"`
	Especie string `json:"especie,omitempty"`
	Idade   int    `json:"idade"`
	Raca    string `json:"raca,omitempty"`
	TutorID string `json:"tutorId,omitempty"`
	Foto    *photo `json:"foto,omitempty"`
}

type tutorRecord struct {
	ID       string `json:"id"`
	Nome     string `json:"nome"`
	Telefone string `json:"telefone"`
	Email    string `json:"email,omitempty"`
	Endereco string `json:"endereco,omitempty"`
	CPF      *int64 `json:"cpf,omitempty"`
	Foto     *photo `json:"foto,omitempty"`
}

// Store is the demo backend's in-memory catalog of pets and tutors.
type Store struct {
	mu       sync.RWMutex
	pets      map[string]*petRecord
	tutors    map[string]*tutorRecord
	nextPet   int
	nextTutor int
	nextFoto  int
}

func NewStore() *Store {
	return &Store{
		pets:   make(map[string]*petRecord),
		tutors: make(map[string]*tutorRecord),
	}
}

// Seed fills the catalog with a small adoptable population so a fresh
// server has something to list.
func (s *Store) Seed() {
	tutors := []*tutorRecord{
		{Nome: "Ana Souza", Telefone: "11 99999-0001", Email: "ana@example.com", Endereco: "Rua das Flores, 10"},
		{Nome: "Bruno Lima", Telefone: "11 99999-0002", Email: "bruno@example.com"},
		{Nome: "Carla Mendes", Telefone: "21 98888-0003", Endereco: "Av. Atlântica, 500"},
	}
	for _, t := range tutors {
		s.CreateTutor(t)
	}

	pets := []*petRecord{
		{Nome: "Rex", Especie: "cachorro", Idade: 4, Raca: "vira-lata"},
		{Nome: "Luna", Especie: "gato", Idade: 2, Raca: "siamês"},
		{Nome: "Bidu", Especie: "cachorro", Idade: 7, Raca: "schnauzer"},
		{Nome: "Mel", Especie: "gato", Idade: 1},
		{Nome: "Thor", Especie: "cachorro", Idade: 3, Raca: "labrador"},
		{Nome: "Nina", Especie: "coelho", Idade: 1},
	}
	for _, p := range pets {
		s.CreatePet(p)
	}
}

func (s *Store) CreatePet(p *petRecord) *petRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPet++
	p.ID = fmt.Sprintf("pet-%d", s.nextPet)
	s.pets[p.ID] = p
	return p
}

func (s *Store) GetPet(id string) (*petRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pets[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (s *Store) UpdatePet(id string, update petRecord) (*petRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[id]
	if !ok {
		return nil, false
	}
	p.Nome = update.Nome
	p.Especie = update.Especie
	p.Idade = update.Idade
	p.Raca = update.Raca
	cp := *p
	return &cp, true
}

func (s *Store) DeletePet(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pets[id]; !ok {
		return false
	}
	delete(s.pets, id)
	return true
}

// ListPets returns the name-filtered slice for one page plus the filtered
// total, ordered by id for stable pagination.
func (s *Store) ListPets(name string, page, size int) ([]*petRecord, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*petRecord, 0, len(s.pets))
	needle := strings.ToLower(name)
	for _, p := range s.pets {
		if needle == "" || strings.Contains(strings.ToLower(p.Nome), needle) {
			cp := *p
			matches = append(matches, &cp)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return window(matches, page, size), len(matches)
}

func (s *Store) CreateTutor(t *tutorRecord) *tutorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTutor++
	t.ID = fmt.Sprintf("tutor-%d", s.nextTutor)
	s.tutors[t.ID] = t
	return t
}

func (s *Store) GetTutor(id string) (*tutorRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tutors[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

func (s *Store) UpdateTutor(id string, update tutorRecord) (*tutorRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tutors[id]
	if !ok {
		return nil, false
	}
	t.Nome = update.Nome
	t.Telefone = update.Telefone
	t.Email = update.Email
	t.Endereco = update.Endereco
	t.CPF = update.CPF
	cp := *t
	return &cp, true
}

func (s *Store) DeleteTutor(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tutors[id]; !ok {
		return false
	}
	delete(s.tutors, id)
	// Orphan this tutor's pets rather than deleting them.
	for _, p := range s.pets {
		if p.TutorID == id {
			p.TutorID = ""
		}
	}
	return true
}

func (s *Store) ListTutors(name string, page, size int) ([]*tutorRecord, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*tutorRecord, 0, len(s.tutors))
	needle := strings.ToLower(name)
	for _, t := range s.tutors {
		if needle == "" || strings.Contains(strings.ToLower(t.Nome), needle) {
			cp := *t
			matches = append(matches, &cp)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return window(matches, page, size), len(matches)
}

// LinkPet attaches a pet to a tutor. Both must exist.
func (s *Store) LinkPet(tutorID, petID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tutors[tutorID]; !ok {
		return false
	}
	p, ok := s.pets[petID]
	if !ok {
		return false
	}
	p.TutorID = tutorID
	return true
}

// UnlinkPet detaches a pet from a tutor; the link must actually exist.
func (s *Store) UnlinkPet(tutorID, petID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[petID]
	if !ok || p.TutorID != tutorID {
		return false
	}
	p.TutorID = ""
	return true
}

// AttachPetPhoto stores an uploaded picture on a pet, replacing any
// previous one.
func (s *Store) AttachPetPhoto(petID, filename, contentType string, data []byte) (*photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[petID]
	if !ok {
		return nil, false
	}
	s.nextFoto++
	id := fmt.Sprintf("foto-%d", s.nextFoto)
	f := &photo{
		ID:          id,
		Nome:        filename,
		ContentType: contentType,
		URL:         fmt.Sprintf("/v1/pets/%s/fotos/%s", petID, id),
		data:        data,
	}
	p.Foto = f
	return f, true
}

func (s *Store) RemovePetPhoto(petID, photoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[petID]
	if !ok || p.Foto == nil || p.Foto.ID != photoID {
		return false
	}
	p.Foto = nil
	return true
}

func (s *Store) AttachTutorPhoto(tutorID, filename, contentType string, data []byte) (*photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tutors[tutorID]
	if !ok {
		return nil, false
	}
	s.nextFoto++
	id := fmt.Sprintf("foto-%d", s.nextFoto)
	f := &photo{
		ID:          id,
		Nome:        filename,
		ContentType: contentType,
		URL:         fmt.Sprintf("/v1/tutores/%s/fotos/%s", tutorID, id),
		data:        data,
	}
	t.Foto = f
	return f, true
}

func (s *Store) RemoveTutorPhoto(tutorID, photoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tutors[tutorID]
	if !ok || t.Foto == nil || t.Foto.ID != photoID {
		return false
	}
	t.Foto = nil
	return true
}

func window[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	start := page * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
