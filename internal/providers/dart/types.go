package dart

import "encoding/json"

// ListItem is one row of the list.json response.
type ListItem struct {
	CorpCode  string `json:"corp_code"`
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code"`
	CorpClass string `json:"corp_cls"`
	ReportNm  string `json:"report_nm"`
	RceptNo   string `json:"rcept_no"`
	FlrNm     string `json:"flr_nm"`
	RceptDt   string `json:"rcept_dt"`
	Rm        string `json:"rm"`
}

type listEnvelope struct {
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	PageNo     int             `json:"page_no"`
	PageCount  int             `json:"page_count"`
	TotalCount int             `json:"total_count"`
	List       json.RawMessage `json:"list"`
}

type listResponse struct {
	Status  string
	Message string
	Items   []ListItem
}
