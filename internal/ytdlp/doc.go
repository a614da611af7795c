// Package ytdlp adapts the yt-dlp command line tool to the engine's
// collaborator interfaces: process supervision with CR/LF line
// streaming, metadata lookup via the JSON dump, argument construction,
// and playlist enumeration.
package ytdlp
