package pregnancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/Krimson/dadguide/internal/storage"
)

var ErrUnknownItem = errors.New("unknown checklist item")

// BagCategory - раздел сумки в роддом
type BagCategory string

const (
	BagDocuments  BagCategory = "Documents"
	BagForPartner BagCategory = "For Partner"
	BagForYou     BagCategory = "For You"
	BagForBaby    BagCategory = "For Baby"
)

// BagCategories - порядок разделов при выводе
var BagCategories = []BagCategory{BagDocuments, BagForPartner, BagForYou, BagForBaby}

type BagItem struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Category BagCategory `json:"category"`
}

// HospitalBag - статический чек-лист
var HospitalBag = []BagItem{
	{ID: "docs1", Name: "ID and Insurance Card", Category: BagDocuments},
	{ID: "docs2", Name: "Birth Plan (if any)", Category: BagDocuments},
	{ID: "partner1", Name: "Comfortable Robe", Category: BagForPartner},
	{ID: "partner2", Name: "Socks and Slippers", Category: BagForPartner},
	{ID: "partner3", Name: "Nursing Bra / Tanks", Category: BagForPartner},
	{ID: "partner4", Name: "Toiletries & Lip Balm", Category: BagForPartner},
	{ID: "partner5", Name: "Going Home Outfit", Category: BagForPartner},
	{ID: "you1", Name: "Change of Clothes", Category: BagForYou},
	{ID: "you2", Name: "Phone and Long Charger", Category: BagForYou},
	{ID: "you3", Name: "Snacks and Water Bottle", Category: BagForYou},
	{ID: "you4", Name: "Toothbrush / Toiletries", Category: BagForYou},
	{ID: "baby1", Name: "Installed Car Seat", Category: BagForBaby},
	{ID: "baby2", Name: "Going Home Outfit", Category: BagForBaby},
	{ID: "baby3", Name: "Baby Blanket", Category: BagForBaby},
}

// ChecklistItem - пункт чек-листа с отметкой
type ChecklistItem struct {
	BagItem
	Packed bool `json:"packed"`
}

// Checklist хранит множество собранных пунктов под ключом packedItems
type Checklist struct {
	store storage.Store

	mu     sync.RWMutex
	packed []string
}

func NewChecklist(store storage.Store) *Checklist {
	return &Checklist{store: store, packed: []string{}}
}

// Load читает собранные пункты. Поврежденная запись считается пустой.
func (c *Checklist) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.packed = []string{}
	data, ok, err := c.store.Get(ctx, storage.KeyPackedItems)
	if err != nil {
		return fmt.Errorf("failed to read packed items: %w", err)
	}
	if !ok {
		return nil
	}

	var packed []string
	if err := json.Unmarshal([]byte(data), &packed); err != nil {
		log.Printf("[WARN] Discarding stored packed items: %v", err)
		return nil
	}
	for _, id := range packed {
		if findItem(id) && !slices.Contains(c.packed, id) {
			c.packed = append(c.packed, id)
		}
	}
	return nil
}

// Toggle переключает отметку и возвращает новое состояние пункта
func (c *Checklist) Toggle(ctx context.Context, id string) (bool, error) {
	if !findItem(id) {
		return false, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}

	c.mu.Lock()
	packed := false
	if i := slices.Index(c.packed, id); i >= 0 {
		c.packed = slices.Delete(c.packed, i, i+1)
	} else {
		c.packed = append(c.packed, id)
		packed = true
	}
	snapshot := append([]string{}, c.packed...)
	c.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return packed, fmt.Errorf("failed to marshal packed items: %w", err)
	}
	return packed, storage.Persist(ctx, c.store, storage.KeyPackedItems, string(data))
}

// Items возвращает чек-лист в порядке каталога
func (c *Checklist) Items() []ChecklistItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]ChecklistItem, 0, len(HospitalBag))
	for _, item := range HospitalBag {
		items = append(items, ChecklistItem{BagItem: item, Packed: slices.Contains(c.packed, item.ID)})
	}
	return items
}

// Progress - сколько пунктов собрано из общего числа
func (c *Checklist) Progress() (packed, total int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.packed), len(HospitalBag)
}

func (c *Checklist) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.packed = []string{}
	c.mu.Unlock()

	if err := c.store.Delete(ctx, storage.KeyPackedItems); err != nil {
		return fmt.Errorf("failed to delete packed items: %w", err)
	}
	return nil
}

func findItem(id string) bool {
	return slices.ContainsFunc(HospitalBag, func(item BagItem) bool { return item.ID == id })
}
