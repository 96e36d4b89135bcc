package scraper

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common/browser"
)

// dismissOverlaysJS removes cookie banners, consent dialogs and similar
// overlays that block the listings underneath.
const dismissOverlaysJS = `() => {
	const patterns = ['cookie', 'consent', 'gdpr', 'privacy', 'truste', 'onetrust', 'banner', 'overlay', 'modal-backdrop'];
	const nodes = document.querySelectorAll('div, section, aside, dialog');
	for (const node of nodes) {
		const id = (node.id || '').toLowerCase();
		const cls = (typeof node.className === 'string' ? node.className : '').toLowerCase();
		if (patterns.some(p => id.includes(p) || cls.includes(p))) {
			const style = window.getComputedStyle(node);
			if (style.position === 'fixed' || style.position === 'sticky' || style.zIndex > 100) {
				node.remove();
			}
		}
	}
	document.body.style.overflow = 'auto';
}`

// scrollToBottomJS nudges lazily loaded listings into the DOM
const scrollToBottomJS = `() => { window.scrollTo(0, document.body.scrollHeight); }`

// DismissOverlays strips blocking overlays from the current page. Failures
// are logged and swallowed, the page may simply have none.
func DismissOverlays(ctx context.Context, driver browser.PageDriver) {
	if err := driver.Eval(ctx, dismissOverlaysJS); err != nil {
		log.Debug().Err(err).Msg("Overlay dismissal script failed")
	}
}
