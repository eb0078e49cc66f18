package protection

import (
	"fmt"
	"strings"
)

// FetchURL derives a gateway URL for a document's content locator.
// Locators take the multiaddr form ".../p2p/<contentAddress>"; the
// content address is the last /p2p/ segment.
func FetchURL(locator, gatewayBase string) (string, error) {
	idx := strings.LastIndex(locator, "/p2p/")
	if idx < 0 {
		return "", fmt.Errorf("locator %q has no /p2p/ segment", locator)
	}
	cid := locator[idx+len("/p2p/"):]
	if cid == "" {
		return "", fmt.Errorf("locator %q has empty content address", locator)
	}
	return strings.TrimRight(gatewayBase, "/") + "/ipfs/" + cid, nil
}
