package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"retail-intel/internal/config"
	"retail-intel/internal/models"
)

// Engine evaluates a mutable ordered set of declarative rules against a
// product snapshot. Evaluation is pure: no state is held between calls, and
// rule/product pairs do not interact.
type Engine struct {
	logger *zap.Logger

	mu    sync.RWMutex
	rules []Rule
}

// NewEngine creates an engine pre-loaded with the built-in rule set.
func NewEngine(cfg *config.EngineConfig, logger *zap.Logger) *Engine {
	e := &Engine{
		logger: logger,
		rules:  builtinRules(cfg),
	}

	logger.Info("rule engine initialized", zap.Int("rules", len(e.rules)))
	return e
}

// AddRule appends a custom rule to the evaluation order.
func (e *Engine) AddRule(rule Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if rule.Condition == nil || rule.Build == nil {
		return fmt.Errorf("rule %s: condition and build are required", rule.ID)
	}
	if rule.Weight <= 0 || rule.Weight > 1 {
		return fmt.Errorf("rule %s: weight must be in (0, 1]", rule.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.rules {
		if r.ID == rule.ID {
			return fmt.Errorf("rule already registered: %s", rule.ID)
		}
	}
	e.rules = append(e.rules, rule)

	e.logger.Info("rule added", zap.String("rule_id", rule.ID), zap.Float64("weight", rule.Weight))
	return nil
}

// RemoveRule deletes a rule by id.
func (e *Engine) RemoveRule(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, r := range e.rules {
		if r.ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			e.logger.Info("rule removed", zap.String("rule_id", id))
			return nil
		}
	}
	return fmt.Errorf("rule not found: %s", id)
}

// Rules returns a copy of the current rule order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every rule against every product and returns the matching
// recommendations sorted by priority then confidence, both descending.
// A rule that panics on a product is logged and skipped; evaluation of the
// remaining rules continues.
func (e *Engine) Evaluate(products []models.Product, ctx *Context) []models.Recommendation {
	start := time.Now()
	rules := e.Rules()

	recs := make([]models.Recommendation, 0, len(products))
	for _, rule := range rules {
		for _, p := range products {
			if rec, ok := e.applyRule(rule, p, ctx); ok {
				recs = append(recs, rec)
			}
		}
	}

	SortRecommendations(recs)

	e.logger.Debug("evaluation completed",
		zap.Int("products", len(products)),
		zap.Int("rules", len(rules)),
		zap.Int("recommendations", len(recs)),
		zap.Duration("duration", time.Since(start)))

	return recs
}

// applyRule evaluates a single (rule, product) pair, recovering from panics
// so one misbehaving rule cannot abort the whole pass.
func (e *Engine) applyRule(rule Rule, p models.Product, ctx *Context) (rec models.Recommendation, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("rule evaluation panicked, skipping",
				zap.String("rule_id", rule.ID),
				zap.String("product_id", p.ID.String()),
				zap.Any("panic", r))
			ok = false
		}
	}()

	if !rule.Condition(p, ctx) {
		return models.Recommendation{}, false
	}

	rec = rule.Build(p, ctx)
	rec.Confidence = clamp01(rec.Confidence * rule.Weight)
	return rec, true
}

// SortRecommendations orders recommendations by priority descending, then
// confidence descending. Full ties break on product ID and type so the
// ordering is total and independent of input order.
func SortRecommendations(recs []models.Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		pi, pj := recs[i].Priority.Rank(), recs[j].Priority.Rank()
		if pi != pj {
			return pi > pj
		}
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		if recs[i].ProductID != recs[j].ProductID {
			return recs[i].ProductID.String() < recs[j].ProductID.String()
		}
		return recs[i].Type < recs[j].Type
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
