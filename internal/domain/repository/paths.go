package repository

import (
	"path"
	"strconv"
	"strings"
)

// Document store layout. Every adapter builds paths through these helpers;
// messages always live nested under their conversation.
const (
	UsersCollection        = "users"
	ListingsCollection     = "listings"
	ChatsCollection        = "chats"
	MessagesSubcollection  = "messages"
	UserChatsCollection    = "userChats"
	InboxSubcollection     = "chats"
	BlockedUsersCollection = "blockedUsers"
	BlockedSubcollection   = "blocked"
)

func UserPath(userID string) string {
	return path.Join(UsersCollection, userID)
}

func ListingPath(listingID string) string {
	return path.Join(ListingsCollection, listingID)
}

func ConversationPath(conversationID string) string {
	return path.Join(ChatsCollection, conversationID)
}

func MessagesPath(conversationID string) string {
	return path.Join(ConversationPath(conversationID), MessagesSubcollection)
}

func MessagePath(conversationID, messageID string) string {
	return path.Join(MessagesPath(conversationID), messageID)
}

func InboxPath(userID string) string {
	return path.Join(UserChatsCollection, userID, InboxSubcollection)
}

func InboxEntryPath(userID, conversationID string) string {
	return path.Join(InboxPath(userID), conversationID)
}

func BlockedPath(blockerID string) string {
	return path.Join(BlockedUsersCollection, blockerID, BlockedSubcollection)
}

func BlockPath(blockerID, blockedID string) string {
	return path.Join(BlockedPath(blockerID), blockedID)
}

// Object storage layout.

func ListingImageObject(userID string, unixMillis int64, index int, filename string) string {
	return path.Join("listings", userID, formatImageName(unixMillis, index, filename))
}

func ProfilePictureObject(userID string) string {
	return path.Join("profile_pictures", userID)
}

func formatImageName(unixMillis int64, index int, filename string) string {
	name := strings.ReplaceAll(path.Base(strings.ReplaceAll(filename, "\\", "/")), " ", "_")
	if name == "." || name == "/" {
		name = "image"
	}
	return strconv.FormatInt(unixMillis, 10) + "_" + strconv.Itoa(index) + "_" + name
}
