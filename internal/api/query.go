package api

import (
	"net/url"
	"strconv"

	"tabula/internal/persist"
)

// ==== Парсинг query-параметров листинга ====

// parseListParams читает _limit/_offset (и алиасы limit/offset).
// Некорректные значения игнорируются, берутся значения по умолчанию.
func parseListParams(q url.Values) persist.Page {
	page := persist.Page{Limit: persist.DefaultLimit}

	lv := q.Get("_limit")
	if lv == "" {
		lv = q.Get("limit")
	}
	if lv != "" {
		if n, err := strconv.Atoi(lv); err == nil && n > 0 && n <= persist.MaxLimit {
			page.Limit = n
		}
	}

	ov := q.Get("_offset")
	if ov == "" {
		ov = q.Get("offset")
	}
	if ov != "" {
		if n, err := strconv.Atoi(ov); err == nil && n >= 0 {
			page.Offset = n
		}
	}
	return page
}
