package server

import (
	"html/template"

	"funrun-registration/internal/models"
	"funrun-registration/internal/notify"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Title        string
	Date         string
	Name         string
	Age          string
	Address      string
	Categories   []option
	NoCategory   bool
	OtherCat     bool
	OtherCatText string
	Contact      string
	EmName       string
	EmContact    string
	Sizes        []option
	OtherSize    bool
	OtherText    string
	FileName     string
	Busy         bool
	Notice       notify.Notification
	IsSuccess    bool
	IsConfirm    bool
}

func newPageData(title string, d models.Draft, n notify.Notification, busy bool) pageData {
	p := pageData{
		Title:     title,
		Name:      d.Name,
		Age:       d.Age,
		Address:   d.Address,
		Contact:   d.ContactNumber,
		EmName:    d.EmergencyName,
		EmContact: d.EmergencyContactNumber,
		Busy:      busy,
		Notice:    n,
		IsSuccess: n.Kind == notify.KindSuccess,
		IsConfirm: n.Stage == notify.StageConfirmReset,
	}
	if d.HasDate() {
		p.Date = d.Date.Format(htmlDateLayout)
	}
	if d.PaymentFile != nil {
		p.FileName = d.PaymentFile.Name
	}

	for _, s := range models.Sections {
		p.Categories = append(p.Categories, option{
			Value:    string(s),
			Label:    string(s),
			Selected: d.Category.IsSet() && !d.Category.IsCustom() && d.Category.Value() == s,
		})
	}
	p.NoCategory = !d.Category.IsSet()
	p.OtherCat = d.Category.IsCustom()
	p.OtherCatText = d.Category.Text()
	p.Categories = append(p.Categories, option{Value: models.SectionOtherLabel, Label: models.SectionOtherLabel, Selected: p.OtherCat})

	for _, z := range models.Sizes {
		p.Sizes = append(p.Sizes, option{
			Value:    string(z),
			Label:    string(z),
			Selected: d.ShirtSize.IsSet() && !d.ShirtSize.IsCustom() && d.ShirtSize.Value() == z,
		})
	}
	p.OtherSize = d.ShirtSize.IsCustom()
	p.OtherText = d.ShirtSize.Text()
	return p
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{background:#f3effb;font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial;color:#202124;display:flex;justify-content:center;padding:28px;margin:0}
.card{width:100%;max-width:760px;background:#fff;border-radius:14px;border:1px solid #ececec;overflow:hidden}
.bar{height:12px;background:#673ab7}.head{padding:18px 22px 10px}
form.main{padding:8px 22px 22px;display:grid;gap:14px}
.field{border:1px solid #e6e6e6;border-radius:12px;padding:16px}
.field label{font-weight:600;font-size:14px;display:block;margin-bottom:10px}
.req{color:#d93025}.helper{font-size:12px;color:#5f6368;margin-top:8px}
input[type=text],input[type=date],select{width:100%;box-sizing:border-box;padding:10px 12px;border:1px solid #dadce0;border-radius:10px;font-size:14px}
button{background:#673ab7;color:#fff;border:none;border-radius:10px;padding:10px 16px;font-weight:700;cursor:pointer}
button[disabled]{opacity:.6;cursor:default}
.overlay{position:fixed;inset:0;background:rgba(0,0,0,.4);display:flex;align-items:center;justify-content:center;padding:20px}
.modal{width:100%;max-width:420px;background:#fff;border-radius:14px;padding:20px;position:relative}
.dismiss{position:absolute;inset:0;width:100%;height:100%;background:transparent;border:none}
.error{background:#b00020}.muted{background:#5f6368}
</style></head>
<body><div class="card"><div class="bar"></div>
<div class="head"><h2>{{.Title}}</h2><p class="helper">Please fill out the form. Fields marked * are required.</p></div>
<form class="main" method="post" action="/submit" enctype="multipart/form-data">
<div class="field"><label>Date <span class="req">*</span></label><input type="date" name="date" value="{{.Date}}"><div class="helper">Format: MM/DD/YYYY</div></div>
<div class="field"><label>Category / Section <span class="req">*</span></label>
<select name="category"><option value="" disabled{{if .NoCategory}} selected{{end}}>Select a section...</option>
{{range .Categories}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}</select>
<input type="text" name="otherCategory" value="{{.OtherCatText}}" placeholder="If Other: type your category (e.g. School Club, BFP, etc.)"></div>
<div class="field"><label>Name <span class="req">*</span></label><input type="text" name="name" value="{{.Name}}"></div>
<div class="field"><label>Age <span class="req">*</span></label><input type="text" name="age" inputmode="numeric" value="{{.Age}}"></div>
<div class="field"><label>Address <span class="req">*</span></label><input type="text" name="address" value="{{.Address}}"></div>
<div class="field"><label>Contact Number <span class="req">*</span></label><input type="text" name="contactNumber" inputmode="numeric" value="{{.Contact}}" placeholder="e.g. 09123456789"><div class="helper">Numbers only (10–15 digits). Example: 09123456789</div></div>
<div class="field"><label>In Case of Emergency: Name (Optional)</label><input type="text" name="emergencyName" value="{{.EmName}}" placeholder="e.g. Maria Santos"></div>
<div class="field"><label>In Case of Emergency: Contact Number (Optional)</label><input type="text" name="emergencyContactNumber" inputmode="numeric" value="{{.EmContact}}" placeholder="e.g. 09123456789"><div class="helper">Numbers only (10–15 digits). Fill together with Emergency Name.</div></div>
<div class="field"><label>T Shirt Sizes <span class="req">*</span></label>
{{range .Sizes}}<div><input type="radio" name="shirtSize" value="{{.Value}}"{{if .Selected}} checked{{end}}> {{.Label}}</div>{{end}}
<div><input type="radio" name="shirtSize" value="OTHER"{{if .OtherSize}} checked{{end}}> Other: <input type="text" name="otherSize" value="{{.OtherText}}" placeholder="Type size"></div></div>
<div class="field"><label>Upload Payment <span class="req">*</span></label>
<div class="helper">{{if .FileName}}Selected: {{.FileName}}{{else}}No file selected{{end}}</div>
<input type="file" name="paymentFile" accept="image/*,.pdf"><div class="helper">Upload a screenshot/photo/PDF of payment proof. (Max 5MB)</div></div>
<button type="submit"{{if .Busy}} disabled{{end}}>{{if .Busy}}Submitting...{{else}}Submit{{end}}</button>
</form></div>
{{if .Notice.Open}}<div class="overlay">
<form method="post" action="/notice/dismiss"><button class="dismiss" aria-label="Close"></button></form>
<div class="modal">
{{if .IsConfirm}}<h3>Submit another one?</h3><p>Do you want to submit another registration?</p>
<form method="post" action="/notice/answer" style="display:flex;gap:10px">
<button name="answer" value="yes" style="flex:1">Yes</button><button name="answer" value="no" class="muted" style="flex:1">No</button></form>
{{else}}{{if .IsSuccess}}<h3>{{.Notice.Message}}</h3>{{else}}<h3>Error ⚠️</h3><p>{{.Notice.Message}}</p>{{end}}
<form method="post" action="/notice/ok"><button style="width:100%"{{if not .IsSuccess}} class="error"{{end}}>OK</button></form>{{end}}
</div></div>{{end}}
</body></html>`))
