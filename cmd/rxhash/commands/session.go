package commands

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Giulio2002/randomx"
)

// session is a VM with the cache and dataset it borrows.
type session struct {
	cache   *randomx.Cache
	dataset *randomx.Dataset
	vm      *randomx.VM
}

func openSession(cfg *Config) (*session, error) {
	flags, err := cfg.EngineFlags()
	if err != nil {
		return nil, err
	}
	log := cfg.logger()

	s := &session{}
	if s.cache, err = randomx.NewCache(flags, []byte(cfg.Key)); err != nil {
		return nil, err
	}
	if cfg.Fast {
		log.Info("building dataset", zap.Int("workers", cfg.Workers))
		if s.dataset, err = randomx.NewDataset(flags, s.cache, cfg.Workers); err != nil {
			return nil, errors.Join(err, s.Close())
		}
	}
	if s.vm, err = randomx.NewVM(flags&^randomx.FlagFullMem, s.cache, s.dataset); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// Close releases the VM, then the dataset, then the cache.
func (s *session) Close() error {
	var errs []error
	if s.vm != nil {
		errs = append(errs, s.vm.Release())
	}
	if s.dataset != nil {
		errs = append(errs, s.dataset.Release())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Release())
	}
	return errors.Join(errs...)
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
