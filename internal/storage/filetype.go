package storage

import (
	"path/filepath"
	"strings"
)

// Attachment categories reported as a message's file type.
const (
	CategoryImage = "image"
	CategoryVideo = "video"
	CategoryAudio = "audio"
	CategoryFile  = "file"
)

var extensions = map[string]struct {
	category    string
	contentType string
}{
	".jpg":  {CategoryImage, "image/jpeg"},
	".jpeg": {CategoryImage, "image/jpeg"},
	".png":  {CategoryImage, "image/png"},
	".gif":  {CategoryImage, "image/gif"},
	".webp": {CategoryImage, "image/webp"},
	".mp4":  {CategoryVideo, "video/mp4"},
	".webm": {CategoryVideo, "video/webm"},
	".mov":  {CategoryVideo, "video/quicktime"},
	".mp3":  {CategoryAudio, "audio/mpeg"},
	".wav":  {CategoryAudio, "audio/wav"},
	".ogg":  {CategoryAudio, "audio/ogg"},
	".m4a":  {CategoryAudio, "audio/mp4"},
	".pdf":  {CategoryFile, "application/pdf"},
	".doc":  {CategoryFile, "application/msword"},
	".docx": {CategoryFile, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".xls":  {CategoryFile, "application/vnd.ms-excel"},
	".xlsx": {CategoryFile, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	".txt":  {CategoryFile, "text/plain"},
	".zip":  {CategoryFile, "application/zip"},
}

// Ext returns the lower-cased extension of filename.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Allowed reports whether the extension of filename may be uploaded.
func Allowed(filename string) bool {
	_, ok := extensions[Ext(filename)]
	return ok
}

// Category returns image, video, audio or file for filename.
func Category(filename string) string {
	if e, ok := extensions[Ext(filename)]; ok {
		return e.category
	}
	return CategoryFile
}

// ContentType returns the MIME type served for filename.
func ContentType(filename string) string {
	if e, ok := extensions[Ext(filename)]; ok {
		return e.contentType
	}
	return "application/octet-stream"
}
