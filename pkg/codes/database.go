package codes

// CarrierCodes holds the known USSD shortcodes of one carrier.
type CarrierCodes struct {
	BalanceCheck string   `json:"balanceCheck,omitempty"`
	DataBundles  []string `json:"dataBundles,omitempty"`
	AirtimeTopUp string   `json:"airtimeTopUp,omitempty"`
	CustomerCare string   `json:"customerCare,omitempty"`
	MyNumber     string   `json:"myNumber,omitempty"`
}

// builtin is the shipped country -> carrier -> codes table.
var builtin = map[string]map[string]CarrierCodes{
	"KE": {
		"Safaricom": {BalanceCheck: "*144#", DataBundles: []string{"*544#", "*459#"}, AirtimeTopUp: "*141#", CustomerCare: "100", MyNumber: "*200#"},
		"Airtel":    {BalanceCheck: "*123#", DataBundles: []string{"*544#"}, AirtimeTopUp: "*141#", CustomerCare: "100", MyNumber: "*121#"},
		"Telkom":    {BalanceCheck: "*130#", DataBundles: []string{"*544#"}, AirtimeTopUp: "*141#", CustomerCare: "100"},
	},
	"US": {
		"T-Mobile": {BalanceCheck: "#BAL#", CustomerCare: "611", MyNumber: "#NUM#"},
		"ATT":      {BalanceCheck: "*646#", CustomerCare: "611"},
	},
	"IN": {
		"Airtel": {BalanceCheck: "*121#", DataBundles: []string{"*121*11#"}, AirtimeTopUp: "*141#", CustomerCare: "121", MyNumber: "*282#"},
		"Jio":    {BalanceCheck: "*333#", DataBundles: []string{"*333#"}, CustomerCare: "1991", MyNumber: "*1#"},
		"VI":     {BalanceCheck: "*141#", DataBundles: []string{"*121#"}, CustomerCare: "199", MyNumber: "*131#"},
	},
	"NG": {
		"MTN":     {BalanceCheck: "*556#", DataBundles: []string{"*131#"}, AirtimeTopUp: "*555#", CustomerCare: "180", MyNumber: "*123#"},
		"Glo":     {BalanceCheck: "*124#", DataBundles: []string{"*127#"}, CustomerCare: "121", MyNumber: "*135*8#"},
		"Airtel":  {BalanceCheck: "*123#", DataBundles: []string{"*141#"}, CustomerCare: "111", MyNumber: "*121#"},
		"9mobile": {BalanceCheck: "*232#", DataBundles: []string{"*229#"}, CustomerCare: "200"},
	},
	"ZA": {
		"Vodacom": {BalanceCheck: "*135#", DataBundles: []string{"*135#"}, CustomerCare: "082135", MyNumber: "*135*501#"},
		"MTN":     {BalanceCheck: "*141#", DataBundles: []string{"*141#"}, CustomerCare: "083123", MyNumber: "*123#"},
		"Cell C":  {BalanceCheck: "*147#", DataBundles: []string{"*147#"}, CustomerCare: "135"},
	},
	"GH": {
		"MTN":        {BalanceCheck: "*124#", DataBundles: []string{"*138#"}, CustomerCare: "100", MyNumber: "*156#"},
		"Vodafone":   {BalanceCheck: "*130#", DataBundles: []string{"*585#"}, CustomerCare: "200"},
		"AirtelTigo": {BalanceCheck: "*127#", DataBundles: []string{"*110#"}, CustomerCare: "181"},
	},
	"GB": {
		"EE":       {BalanceCheck: "*150#", CustomerCare: "150"},
		"O2":       {BalanceCheck: "*#10#", CustomerCare: "202"},
		"Vodafone": {BalanceCheck: "*#1345#", CustomerCare: "191"},
		"Three":    {BalanceCheck: "*#1345#", CustomerCare: "333"},
	},
	"UG": {
		"MTN":    {BalanceCheck: "*131#", DataBundles: []string{"*150#"}, CustomerCare: "100", MyNumber: "*156#"},
		"Airtel": {BalanceCheck: "*133#", DataBundles: []string{"*175#"}, CustomerCare: "100"},
	},
	"TZ": {
		"Vodacom": {BalanceCheck: "*100#", DataBundles: []string{"*149#"}, CustomerCare: "100"},
		"Airtel":  {BalanceCheck: "*144#", DataBundles: []string{"*150#"}, CustomerCare: "111"},
		"Tigo":    {BalanceCheck: "*100#", DataBundles: []string{"*150#"}, CustomerCare: "123"},
	},
	"EG": {
		"Vodafone": {BalanceCheck: "*9#", CustomerCare: "888"},
		"Orange":   {BalanceCheck: "#100#", CustomerCare: "110"},
		"Etisalat": {BalanceCheck: "*228#", CustomerCare: "101"},
	},
	"PK": {
		"Jazz":    {BalanceCheck: "*111#", DataBundles: []string{"*117#"}, CustomerCare: "111"},
		"Telenor": {BalanceCheck: "*444#", DataBundles: []string{"*345#"}, CustomerCare: "345"},
		"Zong":    {BalanceCheck: "*222#", DataBundles: []string{"*6464#"}, CustomerCare: "310"},
	},
}

// carrierAliases maps common spellings to canonical carrier names.
var carrierAliases = map[string]string{
	"att":         "ATT",
	"at&t":        "ATT",
	"t-mobile":    "T-Mobile",
	"tmobile":     "T-Mobile",
	"cellc":       "Cell C",
	"cell-c":      "Cell C",
	"airteltigo":  "AirtelTigo",
	"airtel-tigo": "AirtelTigo",
	"vodacom":     "Vodacom",
	"mtn":         "MTN",
}
