package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paperscout/models"
)

// PaperStore materializes candidates into deduplicated paper rows.
type PaperStore struct {
	db *gorm.DB
}

// NewPaperStore wires a gorm.DB implementation.
func NewPaperStore(db *gorm.DB) *PaperStore {
	return &PaperStore{db: db}
}

// GetOrCreate finds or creates the paper for a candidate. Lookup order is
// DOI, then arXiv id, then the normalized title+author fingerprint. Creation
// is an insert-on-conflict against the fingerprint's unique index, so two
// runs racing on the same logical paper converge on one row; the loser of
// the race reports wasCreated=false.
func (s *PaperStore) GetOrCreate(ctx context.Context, cand models.ArticleCandidate) (uint, bool, error) {
	if doi := models.NormalizeDOI(cand.DOI); doi != "" {
		var existing models.Paper
		err := s.db.WithContext(ctx).Where("doi = ?", doi).First(&existing).Error
		if err == nil {
			return existing.ID, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, fmt.Errorf("lookup by doi: %w", err)
		}
	}

	if arxivID := models.NormalizeArxivID(cand.ArxivID); arxivID != "" {
		var existing models.Paper
		err := s.db.WithContext(ctx).Where("arxiv_id = ?", arxivID).First(&existing).Error
		if err == nil {
			return existing.ID, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, fmt.Errorf("lookup by arxiv id: %w", err)
		}
	}

	fingerprint := cand.Fingerprint()
	paper := models.Paper{
		DOI:           models.NormalizeDOI(cand.DOI),
		ArxivID:       models.NormalizeArxivID(cand.ArxivID),
		Fingerprint:   fingerprint,
		Title:         strings.TrimSpace(cand.Title),
		Abstract:      cand.Abstract,
		Authors:       strings.Join(cand.Authors, ", "),
		URL:           cand.URL,
		PDFURL:        cand.PDFURL,
		PublishedAt:   cand.PublishedAt,
		DiscoveredVia: cand.Source,
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(&paper)
	if res.Error != nil {
		return 0, false, fmt.Errorf("create paper: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return paper.ID, true, nil
	}

	// Lost the race or matched an existing fingerprint; fetch the winner.
	var existing models.Paper
	if err := s.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&existing).Error; err != nil {
		return 0, false, fmt.Errorf("fetch paper after conflict: %w", err)
	}
	return existing.ID, false, nil
}

// List returns the newest papers up to limit.
func (s *PaperStore) List(ctx context.Context, limit int) ([]models.Paper, error) {
	query := s.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var papers []models.Paper
	err := query.Find(&papers).Error
	return papers, err
}
