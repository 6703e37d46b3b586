package db

// Page identifies one of the fixed business pages that comments and
// permissions are scoped to.
type Page string

const (
	PageProducts  Page = "products"
	PageMarketing Page = "marketing"
	PageOrders    Page = "orders"
	PageMedia     Page = "media"
	PageOffers    Page = "offers"
	PageClients   Page = "clients"
	PageSuppliers Page = "suppliers"
	PageSupport   Page = "support"
	PageSales     Page = "sales"
	PageFinance   Page = "finance"
)

// Pages lists every valid page in display order.
var Pages = []Page{
	PageProducts,
	PageMarketing,
	PageOrders,
	PageMedia,
	PageOffers,
	PageClients,
	PageSuppliers,
	PageSupport,
	PageSales,
	PageFinance,
}

// PageLabels maps page ids to their human-readable names.
var PageLabels = map[Page]string{
	PageProducts:  "Products List",
	PageMarketing: "Marketing List",
	PageOrders:    "Order List",
	PageMedia:     "Media Plans",
	PageOffers:    "Offer Pricing SKUs",
	PageClients:   "Clients",
	PageSuppliers: "Suppliers",
	PageSupport:   "Customer Support",
	PageSales:     "Sales Reports",
	PageFinance:   "Finance & Accounting",
}

// ValidPage reports whether the given id is one of the fixed pages.
func ValidPage(page Page) bool {
	_, ok := PageLabels[page]
	return ok
}
