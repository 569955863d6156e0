package models

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Shop{},
		&User{},
		&AuthToken{},
		&PaymentMethod{},
		&Customer{},
		&MeasurementTemplate{},
		&Measurement{},
		&Order{},
		&OrderItem{},
		&Invoice{},
		&InvoiceItem{},
		&CatalogItem{},
		&Quotation{},
		&InventoryCategory{},
		&InventoryItem{},
		&OrderMaterial{},
		&StockHistory{},
		&GalleryCategory{},
		&GalleryItem{},
		&GalleryImage{},
		&GallerySettings{},
		&GalleryAnalytics{},
		&Plan{},
		&Subscription{},
		&Payment{},
	}
}
