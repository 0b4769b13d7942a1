package http

import (
	"encoding/json"

	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		if join.User == "" {
			return nil, &proto.Error{Code: core.ErrCodeUsernameRequired, Msg: "username is required"}, nil
		}
		cmd := &core.Command{
			Kind:        core.CommandJoinRoom,
			Room:        join.Room,
			Name:        join.User,
			RejoinToken: join.RejoinToken,
		}
		if join.Create != nil {
			cmd.Creation = &core.CreationIntent{Name: join.Create.Name}
		}
		return cmd, nil, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		if msg.Text == "" && msg.Attachment == nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "message is empty"}, nil
		}
		cmd := &core.Command{
			Kind: core.CommandSendMessage,
			Room: msg.Room,
			Text: msg.Text,
		}
		if msg.Attachment != nil {
			cmd.Attachment = &core.Attachment{
				Name: msg.Attachment.Name,
				Mime: msg.Attachment.Type,
				Data: msg.Attachment.Data,
			}
		}
		return cmd, nil, nil
	case proto.InboundTypeChangeName:
		var change proto.ChangeNameData
		if err := json.Unmarshal(inbound.Data, &change); err != nil {
			return nil, nil, err
		}
		if change.Room == "" || change.Name == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room and name are required"}, nil
		}
		return &core.Command{
			Kind: core.CommandChangeName,
			Room: change.Room,
			Name: change.Name,
		}, nil, nil
	case proto.InboundTypeRenameRoom:
		var rename proto.RenameRoomData
		if err := json.Unmarshal(inbound.Data, &rename); err != nil {
			return nil, nil, err
		}
		if rename.Room == "" || rename.Name == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room and name are required"}, nil
		}
		return &core.Command{
			Kind: core.CommandRenameRoom,
			Room: rename.Room,
			Name: rename.Name,
		}, nil, nil
	case proto.InboundTypeClearHistory:
		cmd, protoErr, err := roomRefCommand(inbound.Data, core.CommandClearHistory)
		return cmd, protoErr, err
	case proto.InboundTypeDeleteRoom:
		cmd, protoErr, err := roomRefCommand(inbound.Data, core.CommandDeleteRoom)
		return cmd, protoErr, err
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func roomRefCommand(data json.RawMessage, kind core.CommandKind) (*core.Command, *proto.Error, error) {
	var ref proto.RoomRefData
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, nil, err
	}
	if ref.Room == "" {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
	}
	return &core.Command{Kind: kind, Room: ref.Room}, nil, nil
}

func messageData(msg core.Message) proto.MessageData {
	data := proto.MessageData{
		ID:   msg.ID,
		User: msg.User,
		Text: msg.Text,
		TS:   msg.Timestamp,
		Kind: string(msg.Kind),
	}
	if msg.Attachment != nil {
		data.Attachment = &proto.AttachmentData{
			Name: msg.Attachment.Name,
			Type: msg.Attachment.Mime,
			Data: msg.Attachment.Data,
		}
	}
	return data
}

func messageList(msgs []core.Message) []proto.MessageData {
	list := make([]proto.MessageData, 0, len(msgs))
	for _, msg := range msgs {
		list = append(list, messageData(msg))
	}
	return list
}

func memberList(members []core.Member) []proto.MemberData {
	list := make([]proto.MemberData, 0, len(members))
	for _, m := range members {
		list = append(list, proto.MemberData{ID: m.ID, Name: m.Name})
	}
	return list
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventJoined:
		snap := event.Snapshot
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventJoined,
			Data: proto.EventJoinedData{
				Room:        snap.RoomID,
				Name:        snap.Name,
				Messages:    messageList(snap.Messages),
				Members:     memberList(snap.Members),
				Owner:       snap.OwnerID,
				RejoinToken: snap.RejoinToken,
			},
		}
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data: proto.EventMessageData{
				Room:        event.Room,
				MessageData: messageData(*event.Message),
			},
		}
	case core.EventMembersUpdated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMembersUpdated,
			Data: proto.EventMembersData{
				Room:    event.Room,
				Members: memberList(event.Members),
			},
		}
	case core.EventRoomRenamed:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomRenamed,
			Data: proto.EventRoomRenamedData{
				Room: event.Room,
				Name: event.Name,
			},
		}
	case core.EventHistoryCleared:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventHistoryCleared,
			Data: proto.EventHistoryData{
				Room:     event.Room,
				Messages: messageList(event.Messages),
			},
		}
	case core.EventRoomDeleted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomDeleted,
			Data:  proto.EventRoomDeletedData{Room: event.Room},
		}
	case core.EventOwnerChanged:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOwnerChanged,
			Data: proto.EventOwnerChangedData{
				Room:  event.Room,
				Owner: event.OwnerID,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
