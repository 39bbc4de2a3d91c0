package usecase

import "NewsCurator/internal/domain"

type nopMetrics struct{}

func (nopMetrics) ArticlesCollected(int)               {}
func (nopMetrics) TierFailed(string)                   {}
func (nopMetrics) DuplicateFiltered()                  {}
func (nopMetrics) PostGenerated()                      {}
func (nopMetrics) SentimentFallback()                  {}
func (nopMetrics) SelectionAttempt(string)             {}
func (nopMetrics) PublishOutcome(domain.PublishStatus) {}
