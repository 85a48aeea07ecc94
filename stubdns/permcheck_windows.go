package main

func WarnIfMaybeWritableByOtherUsers(p string) {}
