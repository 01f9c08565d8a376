package api

import (
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/service"
)

// StudyInfo contains information about a study for the API response.
type StudyInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Annotations int    `json:"annotations"`
	HasArchive  bool   `json:"has_archive"`
}

// StudyRegistry holds annotation services for all configured studies.
type StudyRegistry struct {
	services     map[string]*service.AnnotService
	defaultStudy string
	studyOrder   []string
}

// NewStudyRegistry creates a new study registry.
func NewStudyRegistry(defaultStudy string, order []string) *StudyRegistry {
	return &StudyRegistry{
		services:     make(map[string]*service.AnnotService),
		defaultStudy: defaultStudy,
		studyOrder:   order,
	}
}

// Register adds an annotation service for a study.
func (r *StudyRegistry) Register(studyID string, svc *service.AnnotService) {
	r.services[studyID] = svc
}

// Get returns the annotation service for a study, or nil if not found.
func (r *StudyRegistry) Get(studyID string) *service.AnnotService {
	return r.services[studyID]
}

// DefaultStudyID returns the default study ID.
func (r *StudyRegistry) DefaultStudyID() string {
	return r.defaultStudy
}

// StudyIDs returns all study IDs in config order.
func (r *StudyRegistry) StudyIDs() []string {
	return r.studyOrder
}

// Studies returns study info for all registered studies. The
// annotation count reflects the directory at call time, so a just
// finished conversion is visible immediately.
func (r *StudyRegistry) Studies() []StudyInfo {
	infos := make([]StudyInfo, 0, len(r.studyOrder))
	for _, id := range r.studyOrder {
		svc := r.services[id]
		if svc == nil {
			continue
		}
		annots, err := svc.ListAnnotations()
		if err != nil {
			annots = nil
		}
		_, hasArchive := svc.ArchivePath()
		// Use the config ID as the display name (user-defined in server.yaml)
		infos = append(infos, StudyInfo{
			ID:          id,
			Name:        id,
			Annotations: len(annots),
			HasArchive:  hasArchive,
		})
	}
	return infos
}
