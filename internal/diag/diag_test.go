package diag

import (
	"fmt"
	"sync"
	"testing"

	"github.com/starford/ansuz/internal/models"
)

func TestCollector_ConcurrentAdd(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Add(models.Diagnostic{
					DocumentPath: fmt.Sprintf("doc%d.md", i),
					Raw:          fmt.Sprintf("[[missing%d]]", j),
					Kind:         models.DiagBrokenLink,
				})
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 1000 {
		t.Errorf("len = %d, want 1000", c.Len())
	}
	if c.Count(models.DiagBrokenLink) != 1000 || c.Count(models.DiagMissingMedia) != 0 {
		t.Error("unexpected counts")
	}
}

func TestCollector_AllSorted(t *testing.T) {
	c := NewCollector()
	c.Add(models.Diagnostic{DocumentPath: "b.md", Raw: "x", Kind: models.DiagBrokenLink})
	c.Add(models.Diagnostic{DocumentPath: "a.md", Raw: "z", Kind: models.DiagMissingMedia})
	c.Add(models.Diagnostic{DocumentPath: "a.md", Raw: "y", Kind: models.DiagBrokenLink})

	all := c.All()
	if all[0].DocumentPath != "a.md" || all[0].Kind != models.DiagBrokenLink {
		t.Errorf("first = %+v", all[0])
	}
	if all[2].DocumentPath != "b.md" {
		t.Errorf("last = %+v", all[2])
	}
	if got := c.ForDocument("a.md"); len(got) != 2 {
		t.Errorf("ForDocument = %d entries", len(got))
	}
}
