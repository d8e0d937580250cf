package xhttp

import "net/http"

const ContentType = "Content-Type"

func SetHeaderContentTypeApplicationJSON(w http.ResponseWriter) {
	const applicationJSON = "application/json"
	w.Header().Set(ContentType, applicationJSON)
}

func SetHeaderContentTypeTextHTML(w http.ResponseWriter) {
	const textHTML = "text/html; charset=utf-8"
	w.Header().Set(ContentType, textHTML)
}
