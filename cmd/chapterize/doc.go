// Package main hosts the chapterize CLI.
//
// Commands:
//
//	chapterize generate <audio> --toc contents.txt --count 12
//	chapterize inspect  <audio>
//	chapterize export   <audio> --chapters chapters.json
//	chapterize config
//
// Configuration comes from the environment (see internal/config). Logs go to
// stderr so stdout carries tables or, with --json, machine-readable output.
package main
