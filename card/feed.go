package card

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// imageProxyBase is the public image-transformation relay every product
// photo is rewritten through. It normalizes arbitrary origin images into
// a square JPEG the layout engine can always decode.
const imageProxyBase = "https://images.weserv.nl/"

const imageProxySize = 600

// freeShippingThreshold is the currency-unit heuristic above which the
// default normalizer flags a product as free-shipping.
var freeShippingThreshold = decimal.NewFromInt(100000)

// xmlNode is a generic element tree: feeds disagree on tag names and
// namespace prefixes, so fields are resolved by walking children instead
// of unmarshalling into a fixed schema.
type xmlNode struct {
	XMLName xml.Name
	Content string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

// productElementNames lists the alternate element names product entries
// hide under, in lookup priority order (RSS item, Atom entry, flat
// product lists).
var productElementNames = []string{"item", "entry", "product"}

var digitRun = regexp.MustCompile(`\d+`)

// Normalize parses a feed document and maps every recognizable product
// element into a canonical Product. The returned slice preserves feed
// order. It fails with ErrParse for malformed markup, ErrNoProducts when
// no product elements exist, and ErrEmptyFeed when every mapped record
// lacked both a price and a name.
func Normalize(doc string) ([]Product, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var items []*xmlNode
	for _, name := range productElementNames {
		items = collectElements(&root, name)
		if len(items) > 0 {
			break
		}
	}
	if len(items) == 0 {
		return nil, ErrNoProducts
	}

	products := make([]Product, 0, len(items))
	for _, it := range items {
		p := mapProduct(it)
		// A record failing both checks carried no usable data at all.
		if p.Price.Sign() <= 0 && p.Name == NoName {
			continue
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return nil, ErrEmptyFeed
	}
	return products, nil
}

func collectElements(n *xmlNode, local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local == local {
			out = append(out, c)
			continue
		}
		out = append(out, collectElements(c, local)...)
	}
	return out
}

// childText returns the trimmed text of the first direct child matching
// the local name. Plain (un-namespaced) elements are preferred when
// namespaced is false; namespaced variants match any declared or bare
// prefix when true.
func childText(n *xmlNode, local string, namespaced bool) string {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local != local {
			continue
		}
		if namespaced != (c.XMLName.Space != "") {
			continue
		}
		if txt := strings.TrimSpace(c.Content); txt != "" {
			return txt
		}
	}
	return ""
}

// firstText resolves a logical field through an ordered candidate list:
// for each name the plain element is tried before namespaced variants,
// and the first non-empty text wins. No merging across candidates.
func firstText(n *xmlNode, names ...string) string {
	for _, name := range names {
		if v := childText(n, name, false); v != "" {
			return v
		}
		if v := childText(n, name, true); v != "" {
			return v
		}
	}
	return ""
}

func childElement(n *xmlNode, local string) *xmlNode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

func mapProduct(n *xmlNode) Product {
	name := firstText(n, "title", "name")
	if name == "" {
		name = NoName
	}

	id := firstText(n, "id", "sku")
	sku := firstText(n, "sku", "id")
	if id == "" {
		id = uuid.NewString()
	}
	if sku == "" {
		sku = id
	}

	rawList := firstText(n, "price")
	rawSale := firstText(n, "sale_price")
	list := parsePrice(rawList)
	sale := parsePrice(rawSale)

	price := sale
	if sale.IsZero() {
		price = list
	}
	listPrice := decimal.Zero
	if !sale.IsZero() && rawList != "" {
		// Pre-discount value, carried for a future was/now badge.
		listPrice = list
	}

	return Product{
		ID:           id,
		Name:         name,
		Price:        price,
		ListPrice:    listPrice,
		ImageURL:     proxyImageURL(firstText(n, "image_link", "image")),
		Installments: resolveInstallments(n),
		FreeShipping: price.GreaterThan(freeShippingThreshold),
		Pickup:       true,
		SKU:          sku,
		BankPromo:    firstText(n, "bank_promo"),
	}
}

// resolveInstallments has a two-tier fallback: the nested Shopping-feed
// structure (<installment><months>N</months></installment>) first, then
// a flat installment/installments text field scanned for digits. A
// product without either has no plan (1).
func resolveInstallments(n *xmlNode) int {
	if inst := childElement(n, "installment"); inst != nil {
		if months := firstText(inst, "months"); months != "" {
			if v, err := strconv.Atoi(strings.TrimSpace(months)); err == nil && v > 1 {
				return v
			}
		}
	}
	if flat := firstText(n, "installment", "installments"); flat != "" {
		if m := digitRun.FindString(flat); m != "" {
			if v, err := strconv.Atoi(m); err == nil && v > 1 {
				return v
			}
		}
	}
	return 1
}

// proxyImageURL strips any query-string suffix from an origin photo URL
// and rewrites it through the image proxy, which serves a CORS-safe
// square JPEG regardless of the origin host's policy or format.
func proxyImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if i := strings.IndexByte(raw, '?'); i != -1 {
		raw = raw[:i]
	}
	ref := strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	q := url.Values{}
	q.Set("url", ref)
	q.Set("w", strconv.Itoa(imageProxySize))
	q.Set("h", strconv.Itoa(imageProxySize))
	q.Set("fit", "contain")
	q.Set("output", "jpg")
	return imageProxyBase + "?" + q.Encode()
}
