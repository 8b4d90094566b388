package eco

// Response shapes of the eco catalog JSON API. Every endpoint wraps its
// payload in a "contents" object.

type librariesResponse struct {
	Contents struct {
		LibList []LibraryInfo `json:"libList"`
	} `json:"contents"`
}

// LibraryInfo is one entry of api/common/libraryInfo. The pseudo library
// with ManageCode "ALL" stands for the whole network.
type LibraryInfo struct {
	LibName    string `json:"libName"`
	ManageCode string `json:"manageCode"`
	GroupName  string `json:"groupName"`
}

type searchRequest struct {
	SearchKeyword string   `json:"searchKeyword"`
	ManageCode    []string `json:"manageCode"`
}

type searchResponse struct {
	Contents struct {
		BookList []BookItem `json:"bookList"`
	} `json:"contents"`
}

// BookItem is one holding row of api/search. A title held by two branches
// comes back as two rows.
type BookItem struct {
	Title          string `json:"originalTitle"`
	Author         string `json:"originalAuthor"`
	Publisher      string `json:"originalPublisher"`
	PubYear        string `json:"pubYear"`
	ISBN           string `json:"isbn"`
	SpeciesKey     string `json:"speciesKey"`
	BookKey        string `json:"bookKey"`
	PubFormCode    string `json:"pubFormCode"`
	ManageCode     string `json:"manageCode"`
	RegCodeDesc    string `json:"regCodeDesc"`
	RegNo          string `json:"regNo"`
	CallNo         string `json:"callNo"`
	LoanStatus     string `json:"loanStatus"`
	WorkingStatus  string `json:"workingStatus"`
	ReturnPlanDate string `json:"returnPlanDate"`
	IsActiveResvYn string `json:"isActiveResvYn"`
	ReservationCnt int    `json:"reservationCount"`
}
