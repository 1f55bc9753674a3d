package deck

import (
	"bytes"
	"encoding/xml"
	"text/template"
)

const (
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	relNS = "http://schemas.openxmlformats.org/package/2006/relationships"
	relOD = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

type slidePart struct {
	Number int
	// Title slides carry text; picture slides carry a media reference.
	IsTitle   bool
	Title     string
	Subtitle  string
	Media     string
	MediaName string
	Place     Placement
}

type packageData struct {
	Title       string
	Created     string
	Slides      []slidePart
	Extensions  []string
	SlideWidth  int64
	SlideHeight int64
}

func xmlEscape(value string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(value))
	return buf.String()
}

var partTemplates = template.Must(template.New("parts").Funcs(template.FuncMap{
	"x":   xmlEscape,
	"add": func(a, b int) int { return a + b },
}).Parse(`
{{define "content_types"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/>{{range .Extensions}}<Default Extension="{{.}}" ContentType="{{if eq . "png"}}image/png{{else}}image/jpeg{{end}}"/>{{end}}<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/><Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/><Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/><Override PartName="/ppt/slideLayouts/slideLayout2.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/><Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>{{range .Slides}}<Override PartName="/ppt/slides/slide{{.Number}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>{{end}}<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/><Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/></Types>{{end}}

{{define "root_rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + relNS + `"><Relationship Id="rId1" Type="` + relOD + `/officeDocument" Target="ppt/presentation.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/><Relationship Id="rId3" Type="` + relOD + `/extended-properties" Target="docProps/app.xml"/></Relationships>{{end}}

{{define "core"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><dc:title>{{x .Title}}</dc:title><dc:creator>vidslides</dc:creator><dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created><dcterms:modified xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:modified></cp:coreProperties>{{end}}

{{define "app"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"><Application>vidslides</Application><PresentationFormat>On-screen Show (16:9)</PresentationFormat><Slides>{{len .Slides}}</Slides></Properties>{{end}}

{{define "presentation"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `" saveSubsetFonts="1"><p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst><p:sldIdLst>{{range .Slides}}<p:sldId id="{{add 255 .Number}}" r:id="rId{{add 2 .Number}}"/>{{end}}</p:sldIdLst><p:sldSz cx="{{.SlideWidth}}" cy="{{.SlideHeight}}"/><p:notesSz cx="6858000" cy="9144000"/></p:presentation>{{end}}

{{define "presentation_rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + relNS + `"><Relationship Id="rId1" Type="` + relOD + `/slideMaster" Target="slideMasters/slideMaster1.xml"/><Relationship Id="rId2" Type="` + relOD + `/theme" Target="theme/theme1.xml"/>{{range .Slides}}<Relationship Id="rId{{add 2 .Number}}" Type="` + relOD + `/slide" Target="slides/slide{{.Number}}.xml"/>{{end}}</Relationships>{{end}}

{{define "group"}}<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>{{end}}

{{define "master"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>{{template "group"}}</p:spTree></p:cSld><p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/><p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/><p:sldLayoutId id="2147483650" r:id="rId2"/></p:sldLayoutIdLst><p:txStyles><p:titleStyle><a:lvl1pPr algn="ctr"><a:defRPr sz="4000"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mj-lt"/></a:defRPr></a:lvl1pPr></p:titleStyle><p:bodyStyle><a:lvl1pPr><a:defRPr sz="2000"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mn-lt"/></a:defRPr></a:lvl1pPr></p:bodyStyle><p:otherStyle><a:lvl1pPr><a:defRPr sz="1800"/></a:lvl1pPr></p:otherStyle></p:txStyles></p:sldMaster>{{end}}

{{define "master_rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + relNS + `"><Relationship Id="rId1" Type="` + relOD + `/slideLayout" Target="../slideLayouts/slideLayout1.xml"/><Relationship Id="rId2" Type="` + relOD + `/slideLayout" Target="../slideLayouts/slideLayout2.xml"/><Relationship Id="rId3" Type="` + relOD + `/theme" Target="../theme/theme1.xml"/></Relationships>{{end}}

{{define "layout_rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + relNS + `"><Relationship Id="rId1" Type="` + relOD + `/slideMaster" Target="../slideMasters/slideMaster1.xml"/></Relationships>{{end}}

{{define "text_shape"}}<p:sp><p:nvSpPr><p:cNvPr id="{{.ID}}" name="{{.Name}}"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="{{.Type}}"{{if .Idx}} idx="{{.Idx}}"{{end}}/></p:nvPr></p:nvSpPr><p:spPr><a:xfrm><a:off x="{{.X}}" y="{{.Y}}"/><a:ext cx="{{.CX}}" cy="{{.CY}}"/></a:xfrm></p:spPr><p:txBody><a:bodyPr/><a:lstStyle/><a:p>{{if .Text}}<a:r><a:rPr lang="en-US" dirty="0"/><a:t>{{x .Text}}</a:t></a:r>{{else}}<a:endParaRPr lang="en-US"/>{{end}}</a:p></p:txBody></p:sp>{{end}}

{{define "layout_title"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `" type="title" preserve="1"><p:cSld name="Title Slide"><p:spTree>{{template "group"}}{{template "text_shape" .TitleShape}}{{template "text_shape" .SubtitleShape}}</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>{{end}}

{{define "layout_blank"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `" type="blank" preserve="1"><p:cSld name="Blank"><p:spTree>{{template "group"}}</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>{{end}}

{{define "slide_title"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>{{template "group"}}{{template "text_shape" .TitleShape}}{{if .SubtitleShape.Text}}{{template "text_shape" .SubtitleShape}}{{end}}</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>{{end}}

{{define "slide_picture"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>{{template "group"}}<p:pic><p:nvPicPr><p:cNvPr id="2" name="Picture {{.Number}}" descr="{{x .MediaName}}"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr><a:xfrm><a:off x="{{.Place.Left}}" y="{{.Place.Top}}"/><a:ext cx="{{.Place.Width}}" cy="{{.Place.Height}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>{{end}}

{{define "slide_rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + relNS + `"><Relationship Id="rId1" Type="` + relOD + `/slideLayout" Target="../slideLayouts/slideLayout{{if .IsTitle}}1{{else}}2{{end}}.xml"/>{{if not .IsTitle}}<Relationship Id="rId2" Type="` + relOD + `/image" Target="../media/{{.Media}}"/>{{end}}</Relationships>{{end}}
`))

// themeXML is the Office default colour and font scheme.
const themeXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="` + nsA + `" name="Office Theme"><a:themeElements><a:clrScheme name="Office"><a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1><a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2><a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2><a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4><a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6><a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink></a:clrScheme><a:fontScheme name="Office"><a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont><a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont></a:fontScheme><a:fmtScheme name="Office"><a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst><a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst><a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst><a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst></a:fmtScheme></a:themeElements></a:theme>`

type textShape struct {
	ID   int
	Name string
	Type string
	Idx  int
	X    int64
	Y    int64
	CX   int64
	CY   int64
	Text string
}

type titleSlideData struct {
	TitleShape    textShape
	SubtitleShape textShape
}

func titleShapes(title, subtitle string) titleSlideData {
	return titleSlideData{
		TitleShape: textShape{
			ID: 2, Name: "Title 1", Type: "ctrTitle",
			X: 685800, Y: 1597819, CX: 7772400, CY: 1102519,
			Text: title,
		},
		SubtitleShape: textShape{
			ID: 3, Name: "Subtitle 2", Type: "subTitle", Idx: 1,
			X: 1371600, Y: 2914650, CX: 6400800, CY: 1314450,
			Text: subtitle,
		},
	}
}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := partTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
