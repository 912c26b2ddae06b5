package i18n

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_ReasonTemplates(t *testing.T) {
	p := Default()

	assert.Equal(t, "Widget not found", p.Message("widget.not_found"))
	assert.Equal(t, "You are not allowed to update this Widget", p.Message("widget.cant_update"))
	assert.Equal(t, "Line Item could not be saved", p.Message("line_item.record_error"))
}

func TestMessage_UnknownKeyFallsBackToKey(t *testing.T) {
	p := Default()

	assert.Equal(t, "widget.exploded", p.Message("widget.exploded"))
	assert.Equal(t, "plain", p.Message("plain"))
}

func TestMessage_ExactOverride(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Set("en-US", "widget.not_found", "No widget with that id (100% sure)"))

	p := c.Printer("en-US")
	assert.Equal(t, "No widget with that id (100% sure)", p.Message("widget.not_found"))
	assert.Equal(t, "Gadget not found", p.Message("gadget.not_found"))
}

func TestPrinter_LocaleMatching(t *testing.T) {
	assert.Equal(t, "Widget introuvable", For("fr-FR").Message("widget.not_found"))
	assert.Equal(t, "Widget not found", For("").Message("widget.not_found"))
	assert.Equal(t, "Widget not found", For("not a locale!").Message("widget.not_found"))
	assert.Equal(t, "en-US", Default().Locale())
}

func TestCatalog_SetWhilePrinting(t *testing.T) {
	c := NewCatalog()
	p := c.Printer("en-US")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Set("en-US", fmt.Sprintf("kind%d.not_found", i), "gone"))
		}()
		go func() {
			defer wg.Done()
			assert.Equal(t, "Line Item not found", p.Message("line_item.not_found"))
		}()
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		assert.Equal(t, "gone", p.Message(fmt.Sprintf("kind%d.not_found", i)))
	}
}
