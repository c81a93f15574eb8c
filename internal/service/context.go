package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mnemo-ai/mnemo/internal/domain"
	"go.uber.org/zap"
)

var ErrNilSnapshot = errors.New("nil snapshot")

const (
	// defaultCleanupInterval spaces the opportunistic cleanups that
	// piggyback on Add.
	defaultCleanupInterval = 10 * time.Minute
	// defaultSummaryLength bounds rendered summaries when the caller
	// passes no limit.
	defaultSummaryLength = 1000
	// summaryImportanceFloor selects the items a summary is built from.
	summaryImportanceFloor = 0.7
)

// ContextManager owns the retained context of a single session: a
// bounded, importance-weighted window over whatever the caller chooses
// to remember. Storage stays in insertion order and every read sorts its
// own copy, so importance updates never reshuffle anything until the
// next read. Expired items vanish from reads immediately but occupy
// storage until a cleanup physically drops them.
//
// All methods are safe for concurrent use.
type ContextManager struct {
	mu sync.Mutex

	sessionID       uuid.UUID
	window          domain.ContextWindow
	items           []domain.ContextItem
	summary         string
	lastCleanup     time.Time
	cleanupInterval time.Duration

	logger *zap.Logger
}

// NewContextManager creates an empty manager for the session. A zero
// window selects the default retention policy.
func NewContextManager(sessionID uuid.UUID, window domain.ContextWindow, logger *zap.Logger) *ContextManager {
	return &ContextManager{
		sessionID:       sessionID,
		window:          window.Normalized(),
		lastCleanup:     time.Now(),
		cleanupInterval: defaultCleanupInterval,
		logger:          logger,
	}
}

// SessionID returns the owning session's id.
func (m *ContextManager) SessionID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Window returns the retention policy in force.
func (m *ContextManager) Window() domain.ContextWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window
}

// SetCleanupInterval overrides the spacing of the opportunistic cleanups
// that run after Add. Zero makes every Add clean up.
func (m *ContextManager) SetCleanupInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupInterval = d
}

// Add stores a new context item and returns its id. It cannot fail:
// importances are clamped and unknown kinds are carried as-is.
func (m *ContextManager) Add(in domain.AddInput) uuid.UUID {
	now := time.Now()
	item := domain.ContextItem{
		ID:         uuid.New(),
		Kind:       in.Kind,
		Payload:    in.Payload,
		CreatedAt:  now,
		Importance: addImportance(in.Importance),
		Metadata:   in.Metadata,
	}
	if in.TTL != 0 {
		expires := now.Add(in.TTL)
		item.ExpiresAt = &expires
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	if now.Sub(m.lastCleanup) >= m.cleanupInterval {
		m.cleanupLocked(now)
	}

	m.logger.Debug("context item added",
		zap.String("session_id", m.sessionID.String()),
		zap.String("kind", string(in.Kind)),
		zap.Float64("importance", item.Importance))
	return item.ID
}

// Get returns matching items ordered by importance and then recency,
// best first. Expired items are filtered out lazily; they stay in
// storage until the next cleanup.
func (m *ContextManager) Get(q domain.Query) []domain.ContextItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(time.Now(), q)
}

func (m *ContextManager) getLocked(now time.Time, q domain.Query) []domain.ContextItem {
	matched := make([]domain.ContextItem, 0, len(m.items))
	for i := range m.items {
		item := &m.items[i]
		if item.IsExpired(now) {
			continue
		}
		if q.Kind != "" && item.Kind != q.Kind {
			continue
		}
		if item.Importance < q.MinImportance {
			continue
		}
		matched = append(matched, *item)
	}
	sortByRelevance(matched)
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched
}

// GetRecent returns items created within the duration, newest first,
// regardless of importance. A non-empty kind filters.
func (m *ContextManager) GetRecent(within time.Duration, kind domain.ContextKind) []domain.ContextItem {
	cutoff := time.Now().Add(-within)
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]domain.ContextItem, 0, len(m.items))
	for i := range m.items {
		item := &m.items[i]
		if item.CreatedAt.Before(cutoff) {
			continue
		}
		if kind != "" && item.Kind != kind {
			continue
		}
		matched = append(matched, *item)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

// SetImportance re-ranks an existing item, clamping into [0,1]. Storage
// order is untouched; the new rank takes effect on the next read.
func (m *ContextManager) SetImportance(id uuid.UUID, importance float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Importance = clamp01(importance)
			return true
		}
	}
	return false
}

// Remove deletes the item if present.
func (m *ContextManager) Remove(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			m.logger.Debug("context item removed",
				zap.String("session_id", m.sessionID.String()),
				zap.String("item_id", id.String()))
			return true
		}
	}
	return false
}

// Clear drops items of one kind, or everything including the cached
// summary when kind is empty. Returns the number removed.
func (m *ContextManager) Clear(kind domain.ContextKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == "" {
		removed := len(m.items)
		m.items = nil
		m.summary = ""
		m.logger.Info("context cleared",
			zap.String("session_id", m.sessionID.String()),
			zap.Int("removed", removed))
		return removed
	}

	kept := m.items[:0]
	for _, item := range m.items {
		if item.Kind == kind {
			continue
		}
		kept = append(kept, item)
	}
	removed := len(m.items) - len(kept)
	m.items = kept
	if removed > 0 {
		m.logger.Debug("context kind cleared",
			zap.String("session_id", m.sessionID.String()),
			zap.String("kind", string(kind)),
			zap.Int("removed", removed))
	}
	return removed
}

// Cleanup enforces the retention policy now: drop everything the window
// rejects, and if the survivors still exceed MaxItems keep only the best
// ranked. Returns the number removed. Running it twice in a row removes
// nothing the second time.
func (m *ContextManager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupLocked(time.Now())
}

func (m *ContextManager) cleanupLocked(now time.Time) int {
	before := len(m.items)

	retained := m.items[:0]
	for i := range m.items {
		if m.window.ShouldRetain(&m.items[i], now) {
			retained = append(retained, m.items[i])
		}
	}
	m.items = retained

	if len(m.items) > m.window.MaxItems {
		sorted := append([]domain.ContextItem(nil), m.items...)
		sortByRelevance(sorted)
		m.items = sorted[:m.window.MaxItems]
	}

	m.lastCleanup = now
	removed := before - len(m.items)
	if removed > 0 {
		m.logger.Debug("context cleanup",
			zap.String("session_id", m.sessionID.String()),
			zap.Int("removed", removed),
			zap.Int("remaining", len(m.items)))
	}
	return removed
}

// Summary renders a compact textual overview of the most important
// retained context, at most maxLen runes (0 applies the default bound).
// The render is cached on the manager so exports carry it; a full Clear
// drops it.
func (m *ContextManager) Summary(maxLen int) string {
	if maxLen <= 0 {
		maxLen = defaultSummaryLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return "No context available."
	}

	now := time.Now()
	important := m.getLocked(now, domain.Query{MinImportance: summaryImportanceFloor, Limit: 20})
	if len(important) == 0 {
		important = m.getLocked(now, domain.Query{Limit: 10})
	}

	// Group by kind, keeping the order kinds first appear in the ranked
	// list so the strongest context leads.
	groups := make(map[domain.ContextKind][]domain.ContextItem)
	var order []domain.ContextKind
	for _, item := range important {
		if _, ok := groups[item.Kind]; !ok {
			order = append(order, item.Kind)
		}
		groups[item.Kind] = append(groups[item.Kind], item)
	}

	parts := make([]string, 0, len(order))
	for _, kind := range order {
		items := groups[kind]
		switch kind {
		case domain.KindMessage:
			recent := items
			if len(recent) > 5 {
				recent = recent[len(recent)-5:]
			}
			contents := make([]string, 0, len(recent))
			for _, it := range recent {
				contents = append(contents, payloadString(it.Payload))
			}
			parts = append(parts, "Recent conversation: "+strings.Join(contents, " | "))
		case domain.KindIntegration:
			parts = append(parts, "Working on integrations: "+strings.Join(metadataNames(items), ", "))
		case domain.KindEntity:
			parts = append(parts, "Referenced entities: "+strings.Join(metadataNames(items), ", "))
		case domain.KindPattern:
			parts = append(parts, "Referenced patterns: "+strings.Join(metadataNames(items), ", "))
		default:
			parts = append(parts, fmt.Sprintf("%s: %d items", titleKind(kind), len(items)))
		}
	}

	summary := strings.Join(parts, ". ")
	if runes := []rune(summary); len(runes) > maxLen && maxLen > 3 {
		summary = string(runes[:maxLen-3]) + "..."
	}
	m.summary = summary
	return summary
}

// Stats reports on everything currently stored, expired items included.
func (m *ContextManager) Stats() domain.ContextStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := domain.ContextStats{
		SessionID:   m.sessionID,
		TotalItems:  len(m.items),
		ItemsByKind: make(map[domain.ContextKind]int),
	}
	if len(m.items) == 0 {
		return stats
	}

	var total float64
	oldest, newest := m.items[0].CreatedAt, m.items[0].CreatedAt
	for i := range m.items {
		item := &m.items[i]
		stats.ItemsByKind[item.Kind]++
		total += item.Importance
		if item.CreatedAt.Before(oldest) {
			oldest = item.CreatedAt
		}
		if item.CreatedAt.After(newest) {
			newest = item.CreatedAt
		}
	}
	stats.AverageImportance = total / float64(len(m.items))
	stats.OldestItem = &oldest
	stats.NewestItem = &newest
	return stats
}

// Export dumps the session verbatim. No cleanup runs first, so expired
// items ride along and are filtered after the next import.
func (m *ContextManager) Export() *domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.Snapshot{
		SessionID:   m.sessionID,
		Window:      m.window,
		Items:       append([]domain.ContextItem(nil), m.items...),
		Summary:     m.summary,
		LastCleanup: m.lastCleanup,
	}
}

// Import replaces the manager's entire state with the snapshot and then
// enforces the retention policy, so oversized or stale snapshots land
// already trimmed.
func (m *ContextManager) Import(snap *domain.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionID = snap.SessionID
	m.window = snap.Window.Normalized()
	m.items = append([]domain.ContextItem(nil), snap.Items...)
	for i := range m.items {
		m.items[i].Importance = clamp01(m.items[i].Importance)
	}
	m.summary = snap.Summary
	m.lastCleanup = snap.LastCleanup
	dropped := m.cleanupLocked(time.Now())

	m.logger.Info("context imported",
		zap.String("session_id", m.sessionID.String()),
		zap.Int("items", len(m.items)),
		zap.Int("dropped", dropped))
	return nil
}

// sortByRelevance orders items by importance, breaking ties toward the
// most recently created. Stable, so identical keys keep insertion order.
func sortByRelevance(items []domain.ContextItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Importance != items[j].Importance {
			return items[i].Importance > items[j].Importance
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// addImportance resolves the importance of a new item: the zero value
// means the default, anything else clamps into [0,1].
func addImportance(v float64) float64 {
	if v == 0 {
		return domain.DefaultImportance
	}
	return clamp01(v)
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

// payloadString renders an opaque payload for human-readable output.
func payloadString(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	return fmt.Sprint(payload)
}

// metadataNames pulls the "name" annotation from each item, defaulting
// to Unknown so a missing annotation stays visible.
func metadataNames(items []domain.ContextItem) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		name := "Unknown"
		if v, ok := it.Metadata["name"].(string); ok && v != "" {
			name = v
		}
		names = append(names, name)
	}
	return names
}

// titleKind upper-cases the first rune of a kind label.
func titleKind(kind domain.ContextKind) string {
	r := []rune(string(kind))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
