package services

import (
	"context"
	"time"

	"salonportal-backend/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	jobTimeout        = 30 * time.Minute
	invitationSweepAt = "30 3 * * *"
)

// Scheduler runs the nightly background jobs.
type Scheduler struct {
	cron        *cron.Cron
	bonus       *BonusService
	invitations *InvitationService
	bonusSpec   string
	now         func() time.Time
}

func NewScheduler(bonusSpec string, bonus *BonusService, invitations *InvitationService) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		bonus:       bonus,
		invitations: invitations,
		bonusSpec:   bonusSpec,
		now:         time.Now,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.bonusSpec, s.RecalculateBonuses); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(invitationSweepAt, s.SweepInvitations); err != nil {
		return err
	}
	s.cron.Start()
	config.Log().Info("Scheduler started",
		zap.String("bonus_spec", s.bonusSpec),
		zap.String("invitation_sweep_spec", invitationSweepAt))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RecalculateBonuses refreshes the draft calculations of the current year.
func (s *Scheduler) RecalculateBonuses() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	year := s.now().Year()
	config.Log().Info("Starting nightly bonus recalculation", zap.Int("year", year))
	if err := s.bonus.RecalculateAll(ctx, year); err != nil {
		config.Log().Error("Nightly bonus recalculation finished with errors", zap.Error(err))
		return
	}
	config.Log().Info("Nightly bonus recalculation completed")
}

func (s *Scheduler) SweepInvitations() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.invitations.SweepExpired(ctx)
	if err != nil {
		config.Log().Error("Invitation sweep failed", zap.Error(err))
		return
	}
	config.Log().Info("Expired invitations removed", zap.Int64("count", n))
}
